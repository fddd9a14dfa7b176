// internal/adapters/http_server/handlers.go
package httpserver

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"guest_reviews/internal/app"
	"guest_reviews/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	M *app.ModerationService
	// I and Feed are optional; without them the ingest route is not mounted.
	I    *app.IngestionService
	Feed domain.FeedSource
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/reviews", h.searchReviews)
	s.mux.Get("/api/reviews/hostaway", h.searchReviews)
	s.mux.Patch("/v1/reviews/{id}/approve", h.approveReview)
	s.mux.Get("/v1/reviews/public", h.publicReviewsByQuery)
	s.mux.Get("/v1/listings/{slug}/reviews", h.publicReviewsBySlug)

	if h.I != nil && h.Feed != nil {
		s.mux.Post("/v1/ingest", h.ingest)
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors; anything unexpected is a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFoundDetail string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", notFoundDetail)
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

func (h *Handlers) searchReviews(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.SearchReviews(r.Context(), r.URL.Query())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSONWithETag(w, r, out)
}

func (h *Handlers) approveReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.M.SetApproval(r.Context(), id, approvalFlag(r.Body))
	if err != nil {
		writeError(w, r, err, "review not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// approvalFlag reads isApproved with JavaScript truthiness: false, 0, "",
// null, a missing field and an unreadable body all mean "not approved";
// any other value approves.
func approvalFlag(body io.Reader) bool {
	var in struct {
		IsApproved json.RawMessage `json:"isApproved"`
	}
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		return false
	}
	raw := bytes.TrimSpace(in.IsApproved)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		var s string
		return json.Unmarshal(raw, &s) == nil && s != ""
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	return err == nil && f != 0 && !math.IsNaN(f)
}

func (h *Handlers) publicReviewsByQuery(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("listingSlug")
	if slug == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "listingSlug is required")
		return
	}
	h.writePublic(w, r, slug)
}

func (h *Handlers) publicReviewsBySlug(w http.ResponseWriter, r *http.Request) {
	slug, err := url.PathUnescape(chi.URLParam(r, "slug"))
	if err != nil || slug == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid listing slug")
		return
	}
	h.writePublic(w, r, slug)
}

func (h *Handlers) writePublic(w http.ResponseWriter, r *http.Request, slug string) {
	out, err := h.Q.PublicReviews(r.Context(), slug)
	if err != nil {
		writeError(w, r, err, "listing not found")
		return
	}
	writeJSONWithETag(w, r, out)
}

func (h *Handlers) ingest(w http.ResponseWriter, r *http.Request) {
	rep, err := h.I.Ingest(r.Context(), h.Feed)
	if errors.Is(err, domain.ErrIngestInProgress) {
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
		return
	}
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
