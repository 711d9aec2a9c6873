package templating_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlink/templating"
)

func TestRender_page_inside_layout(t *testing.T) {
	t.Parallel()

	var en templating.Engine

	got, err := en.RenderString(
		templating.PageSuccess,
		templating.Vars{
			"title":   "Connected",
			"message": "GitHub token saved.",
		},
	)
	require.NoError(t, err)

	assert.Contains(t, got, "<title>Connected</title>")
	assert.Contains(t, got, "<p>GitHub token saved.</p>")
	assert.Contains(t, got, "<!DOCTYPE html>")
}

func TestRender_escapes_values(t *testing.T) {
	t.Parallel()

	var en templating.Engine

	got, err := en.RenderString(
		templating.PageError,
		templating.Vars{
			"description": `<script>alert("x")</script>`,
			"code":        "invalid_state",
			"retry_url":   "/",
		},
	)
	require.NoError(t, err)

	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "Code: invalid_state")
}

func TestRender_raw_values_verbatim(t *testing.T) {
	t.Parallel()

	en := templating.Engine{
		Pages: fstest.MapFS{
			"layout.html": {Data: []byte("[{{imports.content}}]")},
			"frag.html":   {Data: []byte("{{raw.link}}|{{text}}")},
		},
	}

	got, err := en.RenderString("frag", templating.Vars{
		"raw.link": `<a href="/">home</a>`,
		"text":     "a<b",
	})
	require.NoError(t, err)

	assert.Equal(t, `[<a href="/">home</a>|a&lt;b]`, got)
}

func TestRender_missing_vars_expand_to_nothing(t *testing.T) {
	t.Parallel()

	var en templating.Engine

	got, err := en.RenderString(
		templating.PageTokenForm,
		templating.Vars{"provider": "Gitee", "action": "/setup"},
	)
	require.NoError(t, err)

	assert.NotContains(t, got, "{{")
	assert.Contains(t, got, `<p class="error"></p>`)
	assert.Contains(t, got, `action="/setup"`)
}

func TestRender_custom_tags(t *testing.T) {
	t.Parallel()

	en := templating.Engine{
		StartTag: "<%",
		EndTag:   "%>",
		Pages: fstest.MapFS{
			"layout.html": {Data: []byte("<%imports.content%>")},
			"hello.html":  {Data: []byte("Hello <%name%>!")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, en.Render(
		&buf, "hello", templating.Vars{"name": "World"},
	))

	assert.Equal(t, "Hello World!", buf.String())
}

func TestRender_unknown_page(t *testing.T) {
	t.Parallel()

	var en templating.Engine

	for _, page := range []string{"nope", "", "../layout"} {
		_, err := en.RenderString(page, nil)
		require.ErrorIs(t, err, templating.ErrUnknownPage, page)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	var en templating.Engine

	names, err := en.Names()
	require.NoError(t, err)

	assert.Equal(t, []string{
		templating.PageError,
		templating.PageOAuthStart,
		templating.PageQRLanding,
		templating.PageSuccess,
		templating.PageTokenForm,
	}, names)
}

func TestRespond_writes_html(t *testing.T) {
	t.Parallel()

	var en templating.Engine

	rec := httptest.NewRecorder()
	en.Respond(rec, http.StatusBadRequest, templating.PageSuccess, templating.Vars{
		"message": "saved",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<p>saved</p>")
}

func TestRespond_unknown_page(t *testing.T) {
	t.Parallel()

	var en templating.Engine

	rec := httptest.NewRecorder()
	en.Respond(rec, http.StatusOK, "missing", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
