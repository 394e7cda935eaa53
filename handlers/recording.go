package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"clipforge/services/recorder"
)

// RecordingHandler exposes the recording session controller over HTTP.
type RecordingHandler struct {
	recorder *recorder.Service
}

func NewRecordingHandler(rec *recorder.Service) *RecordingHandler {
	return &RecordingHandler{recorder: rec}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Start begins a recording session.
func (h *RecordingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var opts recorder.StartOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	message, err := h.recorder.Start(opts)
	if err != nil {
		switch {
		case errors.Is(err, recorder.ErrRecordingInProgress):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, recorder.ErrInvalidMode):
			writeError(w, http.StatusBadRequest, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// Stop ends the active recording session.
func (h *RecordingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	message, err := h.recorder.Stop()
	if err != nil {
		if errors.Is(err, recorder.ErrNoActiveRecording) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// Status reports whether a session is live.
func (h *RecordingHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.recorder.Status())
}
