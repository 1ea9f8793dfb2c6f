package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// maxRunsLimit caps the limit query parameter of /api/runs.
const maxRunsLimit = 200

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

// handleProgress returns the current progress snapshot.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.progress.Snapshot())
}

// handleProgressStream streams progress via Server-Sent Events until the
// run finishes or the client disconnects.
func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	progressCh := s.progress.Subscribe()
	defer s.progress.Unsubscribe(progressCh)
	eventID := 0

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed: the run finished
				data, _ := json.Marshal(s.progress.Snapshot())
				fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
				rc.Flush()
				return
			}

			eventID++
			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", eventID, data)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

// handleListRuns returns recent runs from the ledger, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, r, errNoLedger, http.StatusNotFound)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, r, fmt.Errorf("validation failed: limit must be a positive integer, got %q", v), http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, runs)
}
