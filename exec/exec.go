// Package exec provides shell command execution helpers.
package exec

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner runs a command and returns its combined
// output.
type Runner interface {
	Run(ctx context.Context, name string, arg ...string) (string, error)
}

// RunnerFunc adapts a plain function to the Runner
// interface.
type RunnerFunc func(
	ctx context.Context,
	name string,
	arg ...string,
) (string, error)

// Run delegates to the wrapped function.
func (f RunnerFunc) Run(
	ctx context.Context,
	name string,
	arg ...string,
) (string, error) {
	return f(ctx, name, arg...)
}

// Default runs commands on the host.
var Default Runner = RunnerFunc(Ex)

// secretFlags are arguments whose following value is
// never logged.
var secretFlags = map[string]bool{
	"password":                     true,
	"wifi-sec.psk":                 true,
	"802-11-wireless-security.psk": true,
}

// Ex executes the named command and returns combined
// stdout+stderr output. Values following a password
// argument are redacted from the logs.
func Ex(
	ctx context.Context,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	shown := strings.Join(Redact(arg), " ")

	slog.Debug(
		"executing",
		"cmd", name,
		"args", shown,
	)

	cmd := exec.CommandContext(ctx, name, arg...)

	by, err := cmd.CombinedOutput()

	slog.Debug("output", "result", string(by))

	if err != nil {
		return string(by), fmt.Errorf(
			"%s: %s %s: %w",
			errCtx, name, shown, err,
		)
	}

	return string(by), nil
}

// Redact returns a copy of args with every value that
// follows a password argument replaced by "***".
func Redact(args []string) []string {
	out := make([]string, len(args))

	for i, a := range args {
		if i > 0 && secretFlags[args[i-1]] {
			out[i] = "***"

			continue
		}

		out[i] = a
	}

	return out
}
