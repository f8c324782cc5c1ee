package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"clipsight/internal/bus"
	"clipsight/internal/jobstore"
)

// handleJobEvents streams stage transitions for one job as server-sent
// events. The stream ends after the terminal event. Only one observer per job
// is allowed; a concurrent second subscriber gets 409.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	sub, err := s.events.Subscribe(jobID)
	if err != nil {
		if errors.Is(err, bus.ErrAlreadySubscribed) {
			writeError(w, http.StatusConflict, "job already has an event subscriber")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer sub.Close()

	record, err := s.store.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrUnknownJob) {
			writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read job status")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Emit the current stage so clients that connect mid-job see state
	// immediately. Events already delivered to the bus before Subscribe are
	// gone; the snapshot covers that gap.
	writeSSE(w, string(record.Stage))
	flusher.Flush()
	if record.Stage.Terminal() {
		return
	}
	lastRank := record.Stage.Rank()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			stage := jobstore.Stage(event)
			// Skip transitions already covered by the snapshot.
			if !stage.Terminal() && stage.Rank() <= lastRank {
				continue
			}
			writeSSE(w, event)
			flusher.Flush()
			if stage.Terminal() {
				return
			}
			lastRank = stage.Rank()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string) {
	fmt.Fprintf(w, "data: %s\n\n", event)
}
