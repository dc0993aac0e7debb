package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/UkralStul/social-blog-service/internal/auth"
	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Hint   string            `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeError переводит доменную ошибку в HTTP-ответ. Чужие записи неотличимы
// от отсутствующих и дают 404.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrNoActiveProfile):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "no active profile",
			Hint:  "select a profile with POST /profiles/{slug}/activate",
		})
	case errors.Is(err, domain.ErrUnauthenticated):
		if auth.WantsHTML(r) {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		// Нечисловой id не может существовать
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func pageParams(r *http.Request) (storage.Page, error) {
	page := storage.Page{Limit: defaultPageSize}
	var verr domain.ValidationError
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPageSize {
			verr.Add("limit", "must be between 1 and 100")
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			verr.Add("offset", "must be a non-negative integer")
		}
		page.Offset = n
	}
	return page, verr.OrNil()
}
