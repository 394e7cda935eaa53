package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/gabriel-vasile/mimetype"

	"clipforge/models"
	"clipforge/services/probe"
)

// MediaHandler imports files into the library and hands them to the native
// player.
type MediaHandler struct {
	prober   *probe.Service
	cacheDir string
}

func NewMediaHandler(prober *probe.Service, cacheDir string) *MediaHandler {
	return &MediaHandler{prober: prober, cacheDir: cacheDir}
}

type mediaRequest struct {
	Path string `json:"path"`
}

// Import enriches a file with probed metadata, a sniffed container type and
// a best-effort thumbnail. A thumbnail failure does not fail the import.
func (h *MediaHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if _, err := os.Stat(req.Path); err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("file does not exist: %s", req.Path))
		return
	}

	meta := models.VideoMetadata{
		Path:     req.Path,
		Filename: filepath.Base(req.Path),
	}

	if p, err := h.prober.Probe(r.Context(), req.Path); err == nil {
		meta.Duration = p.Duration
		meta.Width = p.Width
		meta.Height = p.Height
		meta.HasAudio = p.HasAudio
	} else {
		if errors.Is(err, probe.ErrNoVideoStream) || errors.Is(err, probe.ErrToolUnavailable) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		log.Printf("[media] probe failed for %s: %v", req.Path, err)
	}

	if mt, err := mimetype.DetectFile(req.Path); err == nil {
		meta.ContentType = mt.String()
	}

	thumbDir := filepath.Join(h.cacheDir, "thumbnails")
	if thumb, err := h.prober.Thumbnail(r.Context(), req.Path, thumbDir); err == nil {
		meta.ThumbnailPath = thumb
	} else {
		log.Printf("[media] warning: thumbnail generation failed for %s: %v", req.Path, err)
	}

	writeJSON(w, http.StatusOK, meta)
}

// OpenNative opens the file in the platform's default video player.
func (h *MediaHandler) OpenNative(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if _, err := os.Stat(req.Path); err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("file does not exist: %s", req.Path))
		return
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", req.Path)
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", "", req.Path)
	default:
		cmd = exec.Command("xdg-open", req.Path)
	}

	if err := cmd.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("open in native player: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "opened"})
}
