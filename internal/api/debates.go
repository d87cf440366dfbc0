package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

// handleListDebates returns indexed debates, newest first. Falls back to a
// directory walk when no index is attached.
func (s *Server) handleListDebates(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if s.index != nil {
		entries, err := s.index.List(r.Context(), limit)
		if err != nil {
			s.logger.Error("listing debates", "error", err)
			writeError(w, http.StatusInternalServerError, "listing debates failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"debates": entries})
		return
	}

	ids, err := s.store.ListTasks()
	if err != nil {
		s.logger.Error("listing store tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "listing debates failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task_ids": ids})
}

// handleGetDebate returns the on-disk status of one deliberation plus its
// index entry when available.
func (s *Server) handleGetDebate(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	status, err := s.store.Status(taskID)
	if err != nil {
		s.logger.Error("reading debate status", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "reading debate failed")
		return
	}
	if !status.HasTask {
		writeError(w, http.StatusNotFound, "debate not found")
		return
	}

	resp := map[string]interface{}{"status": status}
	if s.index != nil {
		if entry, err := s.index.Get(r.Context(), taskID); err == nil && entry != nil {
			resp["summary"] = entry
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetArtifact reads one chunked artifact at the requested load level.
// Query params: path (relative, e.g. round_00/gpt.md) and level
// (METADATA|SUMMARY|CONCLUSION|FULL, default FULL).
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	relPath := r.URL.Query().Get("path")
	if relPath == "" {
		writeError(w, http.StatusBadRequest, "missing path parameter")
		return
	}
	level := core.ParseLoadLevel(r.URL.Query().Get("level"))

	artifact, err := s.store.Load(taskID, relPath, level)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		if core.IsCategory(err, core.ErrCatValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("loading artifact", "task_id", taskID, "path", relPath, "error", err)
		writeError(w, http.StatusInternalServerError, "loading artifact failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"level":    level.String(),
		"artifact": artifact,
	})
}
