package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"bookrec/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleRecommendText(w http.ResponseWriter, r *http.Request) {
	query := pathParam(r, "query")
	k, err := parseK(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.rec.RecommendText(r.Context(), query, k)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

func (s *Server) handleRecommendFromLibrary(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(pathParam(r, "bookID"), "book id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	k, err := parseK(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.rec.RecommendFromLibrary(r.Context(), itemID, k)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

func (s *Server) handleRecommendUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(pathParam(r, "userID"), "user id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.rec.RecommendUser(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathParam returns a decoded route parameter. chi matches on the raw path
// when the request carried escapes such as %2F, so those are decoded here.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func parseID(raw, what string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", domain.ErrInvalidArgument, what, raw)
	}
	return id, nil
}

// parseK reads the optional ?k= override; 0 means the configured default.
func parseK(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("k")
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k <= 0 {
		return 0, fmt.Errorf("%w: k must be a positive integer, got %q", domain.ErrInvalidArgument, raw)
	}
	return k, nil
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState:
		return http.StatusServiceUnavailable
	case domain.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := domain.KindOf(err)

	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("request_id", requestID(r)).
		Str("kind", kind.String()).
		Int("status", status).
		Msg("request failed")

	respondJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
}

// respondResult always writes an array, even for an empty answer.
func respondResult(w http.ResponseWriter, res domain.RecommendationResult) {
	if res == nil {
		res = domain.RecommendationResult{}
	}
	respondJSON(w, http.StatusOK, res)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
