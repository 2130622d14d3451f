package mdrender

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r := New(Options{})

	out, err := r.Render([]byte("**issue (blocking):** fix the ~~bug~~\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, ContainerOpen))
	assert.True(t, strings.HasSuffix(out, ContainerClose))
	assert.Contains(t, out, "<strong>issue (blocking):</strong>")
	assert.Contains(t, out, "<del>bug</del>")
}

func TestRender_CodeHighlighted(t *testing.T) {
	r := New(Options{})
	out, err := r.Render([]byte("suggestion: try\n\n```go\nfunc main() {}\n```\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "<p>suggestion: try</p>")
	assert.Contains(t, out, "<pre")
	assert.Contains(t, out, "style=")
}

func TestRender_RawHTML(t *testing.T) {
	src := []byte("note: <script>alert(1)</script>\n")

	out, err := New(Options{}).Render(src)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")

	out, err = New(Options{Unsafe: true}).Render(src)
	require.NoError(t, err)
	assert.Contains(t, out, "<script>")
}
