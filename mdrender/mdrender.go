// Package mdrender turns the Markdown source of a review comment into the
// HTML a code host would show, wrapped in a comment-body container so the
// highlighter picks it up.
package mdrender

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// ContainerOpen and ContainerClose wrap every rendered comment.
const (
	ContainerOpen  = `<div class="comment-body markdown-body">`
	ContainerClose = `</div>`
)

// Options controls rendering.
type Options struct {
	// Style is the chroma style for fenced code. Default: "github".
	Style string
	// Unsafe keeps raw HTML from the source. Off by default: comment
	// sources are untrusted.
	Unsafe bool
}

// Renderer converts Markdown. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// New builds a Renderer with GFM and syntax highlighting.
func New(opts Options) *Renderer {
	if opts.Style == "" {
		opts.Style = "github"
	}
	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(opts.Style),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	}
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	return &Renderer{md: goldmark.New(rendererOpts...)}
}

// Render converts src and wraps the result in the comment container.
func (r *Renderer) Render(src []byte) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(ContainerOpen)
	if err := r.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("mdrender: convert: %w", err)
	}
	buf.WriteString(ContainerClose)
	return buf.String(), nil
}
