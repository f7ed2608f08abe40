package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hwingest/internal/hwdoc"
	"hwingest/internal/pipeline"
)

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"chip":     snap.Chip,
		"progress": snap.Progress,
	})
}

func (s *Server) handleIngestChunks(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted {
		jsonError(w, "job is not completed: "+string(snap.Status), http.StatusConflict)
		return
	}

	chunks := job.Chunks()
	if chunks == nil {
		chunks = []hwdoc.Chunk{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id": snap.ID,
		"doc_id": snap.DocID,
		"count":  len(chunks),
		"chunks": chunks,
	})
}
