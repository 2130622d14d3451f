package marker

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/ccmark/kit"
	"github.com/hazyhaar/ccmark/shield"
	"github.com/hazyhaar/ccmark/vocab"
)

// Routes returns the HTTP API.
//
// Document endpoints take the raw document as the request body:
//
//	POST /api/highlight[?fragment=1]   HTML      -> {"html", "highlights"}
//	POST /api/extract[?domain=...]     HTML      -> report
//	POST /api/render                   Markdown  -> {"html", "highlights"}
//	POST /api/fetch                    {"url", "mode"}
//
// Vocabulary endpoints exchange JSON and answer with the new vocabulary.
func (m *Marker) Routes() http.Handler {
	ep := m.endpoints()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.RequestLog(m.logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/highlight", kit.HTTPHandler(ep.highlight, m.decodeHighlight))
		r.Post("/extract", kit.HTTPHandler(ep.extract, m.decodeExtract))
		r.Post("/render", kit.HTTPHandler(ep.render, m.decodeRender))
		r.Post("/fetch", kit.HTTPHandler(ep.fetch, decodeJSON[fetchReq]))

		r.Route("/vocabulary", func(r chi.Router) {
			r.Get("/", kit.HTTPHandler(ep.vocabulary, noRequest))
			r.Post("/labels", kit.HTTPHandler(ep.addTerm, decodeTerm(vocab.KindLabel)))
			r.Delete("/labels/{name}", kit.HTTPHandler(ep.removeTerm, termFromPath(vocab.KindLabel)))
			r.Post("/decorations", kit.HTTPHandler(ep.addTerm, decodeTerm(vocab.KindDecoration)))
			r.Delete("/decorations/{name}", kit.HTTPHandler(ep.removeTerm, termFromPath(vocab.KindDecoration)))
			r.Put("/colors", kit.HTTPHandler(ep.setColor, decodeJSON[termReq]))
			r.Delete("/colors", kit.HTTPHandler(ep.resetColors, noRequest))
		})
	})
	return r
}

// readBody reads at most MaxBody+1 bytes so oversize input reaches the
// size check instead of being silently truncated.
func (m *Marker) readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, m.cfg.MaxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func (m *Marker) decodeHighlight(r *http.Request) (any, error) {
	body, err := m.readBody(r)
	if err != nil {
		return nil, err
	}
	fragment, _ := strconv.ParseBool(r.URL.Query().Get("fragment"))
	return &highlightReq{HTML: string(body), Fragment: fragment}, nil
}

func (m *Marker) decodeExtract(r *http.Request) (any, error) {
	body, err := m.readBody(r)
	if err != nil {
		return nil, err
	}
	return &extractReq{HTML: string(body), Domain: r.URL.Query().Get("domain")}, nil
}

func (m *Marker) decodeRender(r *http.Request) (any, error) {
	body, err := m.readBody(r)
	if err != nil {
		return nil, err
	}
	return &renderReq{Markdown: string(body)}, nil
}

func decodeJSON[T any](r *http.Request) (any, error) {
	var v T
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return &v, nil
}

func decodeTerm(kind vocab.Kind) kit.HTTPDecoder {
	return func(r *http.Request) (any, error) {
		v, err := decodeJSON[termReq](r)
		if err != nil {
			return nil, err
		}
		t := v.(*termReq)
		t.Kind = kind
		return t, nil
	}
}

func termFromPath(kind vocab.Kind) kit.HTTPDecoder {
	return func(r *http.Request) (any, error) {
		return &termReq{Kind: kind, Name: chi.URLParam(r, "name")}, nil
	}
}

func noRequest(*http.Request) (any, error) { return nil, nil }
