package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"clipsight/internal/jobstore"
	"clipsight/internal/logging"
	"clipsight/internal/pipeline"
	"clipsight/internal/services"
)

type analyzeRequest struct {
	URL string `json:"url"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	jobID, err := s.jobs.SubmitURL(r.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, pipeline.ErrNotRunning):
			writeError(w, http.StatusServiceUnavailable, "pipeline unavailable")
		default:
			s.logger.Error("submit url failed", logging.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start job")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	file, _, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' required")
		return
	}
	defer file.Close()

	jobID := uuid.NewString()
	if _, err := s.store.Create(r.Context(), jobID); err != nil {
		s.logger.Error("create upload job failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	// Uploads are normalized to mp4 regardless of the original filename.
	dest := s.store.VideoDestination(jobID, "mp4")
	if err := saveUpload(file, dest); err != nil {
		os.RemoveAll(s.store.Dir(jobID))
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		s.logger.Error("save upload failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	if err := s.jobs.SubmitUpload(r.Context(), jobID); err != nil {
		os.RemoveAll(s.store.Dir(jobID))
		if errors.Is(err, pipeline.ErrNotRunning) {
			writeError(w, http.StatusServiceUnavailable, "pipeline unavailable")
			return
		}
		s.logger.Error("submit upload failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start job")
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID})
}

func saveUpload(src io.Reader, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	record, err := s.store.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrUnknownJob) {
			writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		s.logger.Error("read job status failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read job status")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("list jobs failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if records == nil {
		records = []jobstore.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleJobReport(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	path, err := s.store.ArtifactPath(jobID, jobstore.ArtifactReport)
	if err != nil {
		writeArtifactError(w, err)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("read report failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read report")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleJobVideo(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	path, err := s.store.ArtifactPath(jobID, jobstore.ArtifactVideo)
	if err != nil {
		writeArtifactError(w, err)
		return
	}
	streamFile(w, r, path, videoContentType(path))
}

func videoContentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".webm"):
		return "video/webm"
	case strings.HasSuffix(path, ".3gp"):
		return "video/3gpp"
	default:
		return "video/mp4"
	}
}

func writeArtifactError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobstore.ErrUnknownJob):
		writeError(w, http.StatusNotFound, "unknown job")
	case errors.Is(err, jobstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "artifact not available")
	default:
		writeError(w, http.StatusInternalServerError, "failed to resolve artifact")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
