package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/byte4ever/gitlink/device"
	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/qrportal"
	"github.com/byte4ever/gitlink/session"
	"github.com/byte4ever/gitlink/settings"
	"github.com/byte4ever/gitlink/templating"
)

// app is the state shared by every subcommand. It is
// filled by the root PersistentPreRunE.
type app struct {
	environ map[string]string
	stdin   *os.File

	store  settings.Store
	ctl    *device.Controller
	engine *templating.Engine

	asJSON bool
}

// newRootCmd builds the command tree. A nil environ
// means the process environment.
func newRootCmd(
	environ map[string]string,
	stdin *os.File,
) *cobra.Command {
	a := &app{
		environ: environ,
		stdin:   stdin,
		engine:  &templating.Engine{},
	}

	cmd := &cobra.Command{
		Use:           "gitlink",
		Short:         "Connect this device to a git hosting provider",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVar(
		&a.asJSON, "json", false, "print results as JSON",
	)

	cmd.AddCommand(
		newAuthCmd(a),
		newTestCmd(a),
		newRepoCmd(a),
		newIssueCmd(a),
		newFileCmd(a),
		newUserCmd(a),
		newConfigCmd(a),
		newPagesCmd(a),
	)

	return cmd
}

// setup loads the environment, installs the logger and
// builds the controller.
func (a *app) setup(cmd *cobra.Command) error {
	const errCtx = "starting gitlink"

	e, err := settings.LoadEnv(a.environ)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), e)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.SetDefault(logger)

	host, err := os.Hostname()
	if err != nil {
		slog.Warn("reading host name", "error", err)
	}

	a.store = e.Open()
	a.ctl = device.New(device.Config{
		Env:        e,
		Store:      a.store,
		Renderer:   qrportal.Terminal{W: cmd.OutOrStdout()},
		Engine:     a.engine,
		DeviceName: host,
	})

	return nil
}

// newLogger returns a slog logger backed by a
// charmbracelet handler writing to w.
func newLogger(w io.Writer, e settings.Env) (*slog.Logger, error) {
	level, err := log.ParseLevel(e.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%sLOG_LEVEL: %w", settings.EnvPrefix, err)
	}

	opts := log.Options{
		Level:           level,
		ReportTimestamp: true,
	}

	if e.LogFormat == "json" {
		opts.Formatter = log.JSONFormatter
	}

	return slog.New(log.NewWithOptions(w, opts)), nil
}

// kind parses raw, or falls back to the saved provider
// when raw is empty.
func (a *app) kind(raw string) (session.Kind, error) {
	if raw == "" {
		return a.ctl.Kind()
	}

	return session.ParseKind(raw)
}

// repo parses raw, or falls back to the saved default
// repository when raw is empty.
func (a *app) repo(raw string) (git.RepoRef, error) {
	if raw != "" {
		return git.ParseRepoRef(raw)
	}

	ref, err := a.ctl.DefaultRepo()
	if errors.Is(err, settings.ErrNotFound) {
		return git.RepoRef{}, fmt.Errorf(
			"no repository given and no default set"+
				" (gitlink config set-default-repo): %w",
			git.ErrInvalidInput,
		)
	}

	return ref, err
}

// emit writes v as indented JSON when --json is set,
// otherwise it calls text.
func (a *app) emit(
	w io.Writer,
	v any,
	text func(w io.Writer) error,
) error {
	if !a.asJSON {
		return text(w)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// argOr returns args[i], or "" when absent.
func argOr(args []string, i int) string {
	if i < len(args) {
		return strings.TrimSpace(args[i])
	}

	return ""
}
