package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/docoutline/internal/store"
	"github.com/go-chi/chi/v5"
)

const maxListLimit = 500

// handleList lists stored outlines, newest first.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list outlines: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outlines": records})
}

// handleDelete removes a stored outline by content hash.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	err := s.store.Delete(r.Context(), hash)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "outline not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete outline: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": hash})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.orchestrator.Stats().Snapshot(),
	})
}
