package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

const (
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json; charset=utf-8"
	contentTypeTextUTF8 = "text/plain; charset=utf-8"

	maxBodyBytes = 1 << 20
)

func respondJSON(w http.ResponseWriter, status int, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return nil
}

func respondText(w http.ResponseWriter, text string) error {
	w.Header().Set(headerContentType, contentTypeTextUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
	return nil
}

func noContent(w http.ResponseWriter) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// headerSent reports whether a handler already started its response.
func headerSent(w http.ResponseWriter) bool {
	return w.Header().Get(headerContentType) != ""
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty", err)
		}
		return badRequest("invalid request body: "+err.Error(), err)
	}
	return nil
}

// urlParam returns a decoded path parameter. chi hands back the escaped form when the
// request path needed RawPath, e.g. for names containing a slash.
func urlParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return "", badRequest("invalid path parameter "+key, err)
	}
	return decoded, nil
}
