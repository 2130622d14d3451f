package kit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// StatusError carries an HTTP status alongside an error.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// NewStatusError wraps err with an HTTP status.
func NewStatusError(code int, err error) error { return &StatusError{Code: code, Err: err} }

// HTTPDecoder extracts an endpoint request from an HTTP request.
type HTTPDecoder func(*http.Request) (any, error)

// HTTPHandler serves endpoint over HTTP. Responses are JSON; a response of
// type RawResponse is written as is. Errors map to their StatusError code,
// or 400 when decoding failed and 500 otherwise.
func HTTPHandler(endpoint Endpoint, decode HTTPDecoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := WithTransport(r.Context(), "http")

		req, err := decode(r)
		if err != nil {
			WriteError(w, err, http.StatusBadRequest)
			return
		}
		resp, err := endpoint(ctx, req)
		if err != nil {
			WriteError(w, err, http.StatusInternalServerError)
			return
		}
		if raw, ok := resp.(RawResponse); ok {
			w.Header().Set("Content-Type", raw.ContentType)
			w.WriteHeader(http.StatusOK)
			w.Write(raw.Body)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// RawResponse bypasses JSON encoding in HTTPHandler.
type RawResponse struct {
	ContentType string
	Body        []byte
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}, using the StatusError code when present.
func WriteError(w http.ResponseWriter, err error, fallback int) {
	code := fallback
	var se *StatusError
	if errors.As(err, &se) {
		code = se.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		code = http.StatusGatewayTimeout
	}
	WriteJSON(w, code, map[string]string{"error": err.Error()})
}
