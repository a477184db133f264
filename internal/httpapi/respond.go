package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"kortio.se/internal/bank"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeStoreError maps store failures onto the HTTP surface. entity names
// the resource for not-found messages, e.g. "Company".
func (a *API) writeStoreError(w http.ResponseWriter, r *http.Request, entity string, err error) {
	var (
		verr *bank.ValidationError
		uerr *bank.UniquenessError
		rerr *bank.ReferenceError
	)
	switch {
	case errors.Is(err, bank.ErrNotFound):
		writeError(w, r, http.StatusNotFound, entity+" not found")
	case errors.As(err, &verr):
		payload := map[string]any{
			"error":   "validation failed",
			"details": verr.Violations,
		}
		if rid := RequestIDFromContext(r.Context()); rid != "" {
			payload["request_id"] = rid
		}
		writeJSON(w, http.StatusBadRequest, payload)
	case errors.As(err, &uerr):
		writeError(w, r, http.StatusConflict, uerr.Error())
	case errors.As(err, &rerr):
		code := http.StatusBadRequest
		if rerr.InUse {
			code = http.StatusConflict
		}
		writeError(w, r, code, rerr.Error())
	default:
		msg := "internal error"
		if a.devMode && err != nil {
			msg = err.Error()
		}
		writeError(w, r, http.StatusInternalServerError, msg)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// parsePage reads page/page_size query parameters; zero values let the
// store apply its defaults.
func parsePage(r *http.Request) (bank.Page, error) {
	var p bank.Page
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return p, errors.New("page must be a positive integer")
		}
		p.Number = v
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return p, errors.New("page_size must be a positive integer")
		}
		p.Size = v
	}
	return p, nil
}

// splitScoped separates "/v1/<entity>/{id}[/child]" remainders into id and
// child segment. A trailing slash on the id is tolerated.
func splitScoped(path, prefix string) (id, child string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" {
		return "", "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" {
		return "", "", false
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		id, child = rest[:i], rest[i+1:]
		if id == "" || strings.Contains(child, "/") {
			return "", "", false
		}
		return id, child, true
	}
	return rest, "", true
}
