package templating

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Page names shipped with the binary.
const (
	PageLayout     = "layout"
	PageTokenForm  = "token_form"
	PageOAuthStart = "oauth_start"
	PageQRLanding  = "qr_landing"
	PageSuccess    = "success"
	PageError      = "error"
)

// ErrUnknownPage is returned when a page template does
// not exist.
var ErrUnknownPage = errors.New("unknown page")

//go:embed pages/*.html
var embedded embed.FS

// Vars are the substitutions of one render. Keys that
// start with "raw." are inserted verbatim; all others
// are HTML-escaped.
type Vars map[string]string

// Engine renders pages from a template file system.
// The zero value renders the embedded pages with
// double-brace tags.
type Engine struct {
	StartTag string
	EndTag   string
	// Pages holds "<name>.html" files. Nil means the
	// embedded pages.
	Pages fs.FS
}

// Render expands page into the layout and writes the
// result to w. The page title comes from vars["title"].
func (en *Engine) Render(w io.Writer, page string, vars Vars) error {
	const errCtx = "rendering page"

	ctx := en.context(vars)

	body, err := en.expand(page, ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if page != PageLayout {
		// The expanded body is imported verbatim.
		ctx["imports.content"] = body

		body, err = en.expand(PageLayout, ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// RenderString is Render into a string.
func (en *Engine) RenderString(page string, vars Vars) (string, error) {
	var buf bytes.Buffer

	if err := en.Render(&buf, page, vars); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Names lists the available page names, layout
// excluded, sorted.
func (en *Engine) Names() ([]string, error) {
	const errCtx = "listing pages"

	fsys, dir := en.source()

	entries, err := fs.Glob(fsys, path.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := strings.TrimSuffix(path.Base(entry), ".html")
		if name != PageLayout {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return names, nil
}

// context escapes vars and stores every value under its
// plain key.
func (en *Engine) context(vars Vars) map[string]any {
	ctx := make(map[string]any, len(vars)+1)

	for key, val := range vars {
		if strings.HasPrefix(key, "raw.") {
			ctx[key] = val

			continue
		}

		ctx[key] = html.EscapeString(val)
	}

	return ctx
}

func (en *Engine) expand(page string, ctx map[string]any) (string, error) {
	content, err := en.read(page)
	if err != nil {
		return "", err
	}

	startTag, endTag := en.tags()

	// Unknown tags expand to nothing so optional
	// fragments can be left out of vars.
	return fasttemplate.ExecuteFuncString(
		content, startTag, endTag,
		func(w io.Writer, tag string) (int, error) {
			val, ok := ctx[strings.TrimSpace(tag)]
			if !ok {
				return 0, nil
			}

			s, _ := val.(string)

			return io.WriteString(w, s)
		},
	), nil
}

func (en *Engine) read(page string) (string, error) {
	if page == "" || strings.ContainsAny(page, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPage, page)
	}

	fsys, dir := en.source()

	content, err := fs.ReadFile(fsys, path.Join(dir, page+".html"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPage, page)
	}

	if err != nil {
		return "", fmt.Errorf("reading %s: %w", page, err)
	}

	return string(content), nil
}

// source returns the template file system and the
// directory holding the pages.
func (en *Engine) source() (fs.FS, string) {
	if en.Pages != nil {
		return en.Pages, "."
	}

	return embedded, "pages"
}

// tags returns the configured start/end tags, falling
// back to double-brace defaults.
func (en *Engine) tags() (string, string) {
	startTag := en.StartTag
	if startTag == "" {
		startTag = "{{"
	}

	endTag := en.EndTag
	if endTag == "" {
		endTag = "}}"
	}

	return startTag, endTag
}
