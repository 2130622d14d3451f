package marker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hazyhaar/ccmark/fetch"
	"github.com/hazyhaar/ccmark/kit"
	"github.com/hazyhaar/ccmark/vocab"
)

type highlightReq struct {
	HTML     string `json:"html"`
	Fragment bool   `json:"fragment"`
}

type extractReq struct {
	HTML   string `json:"html"`
	Domain string `json:"domain"`
}

type renderReq struct {
	Markdown string `json:"markdown"`
}

type fetchReq struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

type termReq struct {
	Kind  vocab.Kind `json:"kind"`
	Name  string     `json:"name"`
	Color string     `json:"color"`
}

// endpoints are shared by the HTTP and MCP transports.
type endpoints struct {
	highlight   kit.Endpoint
	extract     kit.Endpoint
	render      kit.Endpoint
	fetch       kit.Endpoint
	vocabulary  kit.Endpoint
	addTerm     kit.Endpoint
	removeTerm  kit.Endpoint
	setColor    kit.Endpoint
	resetColors kit.Endpoint
}

func (m *Marker) endpoints() endpoints {
	wrap := func(op string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(m.logger, op), statusMapping())(ep)
	}
	return endpoints{
		highlight: wrap("highlight", func(ctx context.Context, req any) (any, error) {
			r := req.(*highlightReq)
			return m.HighlightHTML(ctx, []byte(r.HTML), HighlightOptions{Fragment: r.Fragment})
		}),
		extract: wrap("extract", func(ctx context.Context, req any) (any, error) {
			r := req.(*extractReq)
			return m.Extract(ctx, []byte(r.HTML), r.Domain)
		}),
		render: wrap("render", func(ctx context.Context, req any) (any, error) {
			r := req.(*renderReq)
			return m.RenderMarkdown(ctx, []byte(r.Markdown))
		}),
		fetch: wrap("fetch", func(ctx context.Context, req any) (any, error) {
			r := req.(*fetchReq)
			if r.URL == "" {
				return nil, kit.NewStatusError(http.StatusBadRequest, errors.New("url is required"))
			}
			if _, err := fetch.ParseMode(r.Mode); err != nil {
				return nil, kit.NewStatusError(http.StatusBadRequest, err)
			}
			return m.FetchAndHighlight(ctx, r.URL, r.Mode)
		}),
		vocabulary: wrap("vocabulary", func(context.Context, any) (any, error) {
			return m.ViewVocabulary(), nil
		}),
		addTerm: wrap("add_term", func(ctx context.Context, req any) (any, error) {
			r := req.(*termReq)
			if err := m.AddTerm(ctx, r.Kind, r.Name, r.Color); err != nil {
				return nil, err
			}
			return m.ViewVocabulary(), nil
		}),
		removeTerm: wrap("remove_term", func(ctx context.Context, req any) (any, error) {
			r := req.(*termReq)
			if err := m.RemoveTerm(ctx, r.Kind, r.Name); err != nil {
				return nil, err
			}
			return m.ViewVocabulary(), nil
		}),
		setColor: wrap("set_color", func(ctx context.Context, req any) (any, error) {
			r := req.(*termReq)
			if err := m.SetColor(ctx, r.Kind, r.Name, r.Color); err != nil {
				return nil, err
			}
			return m.ViewVocabulary(), nil
		}),
		resetColors: wrap("reset_colors", func(ctx context.Context, _ any) (any, error) {
			if err := m.ResetColors(ctx); err != nil {
				return nil, err
			}
			return m.ViewVocabulary(), nil
		}),
	}
}

// statusMapping tags domain errors with their HTTP status.
func statusMapping() kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			resp, err := next(ctx, req)
			if err == nil {
				return resp, nil
			}
			var se *kit.StatusError
			switch {
			case errors.As(err, &se):
			case errors.Is(err, ErrTooLarge):
				err = kit.NewStatusError(http.StatusRequestEntityTooLarge, err)
			case errors.Is(err, ErrReadOnly):
				err = kit.NewStatusError(http.StatusConflict, err)
			case errors.Is(err, vocab.ErrNotFound):
				err = kit.NewStatusError(http.StatusNotFound, err)
			case errors.Is(err, vocab.ErrInvalidName), errors.Is(err, vocab.ErrInvalidColor), errors.Is(err, vocab.ErrInvalidKind),
				errors.Is(err, fetch.ErrSSRF), errors.Is(err, fetch.ErrUnsafeScheme):
				err = kit.NewStatusError(http.StatusBadRequest, err)
			case errors.Is(err, fetch.ErrTooLarge):
				err = kit.NewStatusError(http.StatusBadGateway, err)
			}
			return resp, err
		}
	}
}
