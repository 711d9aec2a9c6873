package commitmsg

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Op is a file operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// TrailerKey prefixes the trailer line appended to
// generated messages.
const TrailerKey = "Pushed-By: "

// ErrUnknownTag is returned when a template uses a tag
// outside {{op}}, {{path}}, {{name}} and {{device}}.
var ErrUnknownTag = errors.New("unknown template tag")

// Defaults holds the template used per operation when
// the caller supplies none.
var Defaults = map[Op]string{ //nolint:gochecknoglobals // read-only table
	OpCreate: "Add {{name}}",
	OpUpdate: "Update {{name}}",
	OpDelete: "Remove {{name}}",
}

// Generate renders tmpl (or the default template of op
// when tmpl is blank) for the file at filePath and
// appends the device trailer. An empty device omits the
// trailer.
func Generate(
	op Op,
	filePath string,
	device string,
	tmpl string,
) (string, error) {
	const errCtx = "generating commit message"

	if strings.TrimSpace(tmpl) == "" {
		def, ok := Defaults[op]
		if !ok {
			return "", fmt.Errorf(
				"%s: unknown operation %q",
				errCtx, op,
			)
		}

		tmpl = def
	}

	values := map[string]string{
		"op":     string(op),
		"path":   filePath,
		"name":   path.Base(filePath),
		"device": device,
	}

	msg, err := fasttemplate.ExecuteFuncStringWithErr(
		tmpl, "{{", "}}",
		func(w io.Writer, tag string) (int, error) {
			v, ok := values[strings.TrimSpace(tag)]
			if !ok {
				return 0, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
			}

			return io.WriteString(w, v)
		},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	msg = strings.TrimSpace(msg)

	if device == "" {
		return msg, nil
	}

	var sb strings.Builder

	sb.WriteString(msg)
	sb.WriteString("\n\n")
	sb.WriteString(TrailerKey)
	sb.WriteString(device)
	sb.WriteByte('\n')

	return sb.String(), nil
}

// ExtractDevice returns the device named in the trailer
// of msg, or empty when there is none.
func ExtractDevice(msg string) string {
	lines := strings.Split(strings.TrimRight(msg, "\n"), "\n")

	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, TrailerKey) {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(last, TrailerKey))
}
