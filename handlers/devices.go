package handlers

import (
	"net/http"

	"clipforge/services/devices"
)

// DevicesHandler exposes audio device enumeration.
type DevicesHandler struct {
	devices *devices.Service
}

func NewDevicesHandler(svc *devices.Service) *DevicesHandler {
	return &DevicesHandler{devices: svc}
}

// ListAudio returns the discoverable audio capture devices.
func (h *DevicesHandler) ListAudio(w http.ResponseWriter, r *http.Request) {
	list, err := h.devices.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
