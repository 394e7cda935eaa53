package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// VideoHandler serves media files with byte-range support for scrubbing
// playback. It keeps no state between requests; every request opens the file
// fresh, so concurrent readers need no synchronization.
type VideoHandler struct {
	fs afero.Fs
}

// NewVideoHandler creates a range-aware file server.
func NewVideoHandler(fs afero.Fs) *VideoHandler {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &VideoHandler{fs: fs}
}

func setStreamingHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Range, Content-Type, Accept, Origin")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges, Content-Type")
}

// HandleOptions answers CORS preflight requests.
func (h *VideoHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	setStreamingHeaders(w)
	w.WriteHeader(http.StatusOK)
}

// ServeVideo streams the file named by the "path" query parameter, honoring
// an optional "Range: bytes=start-end" header.
func (h *VideoHandler) ServeVideo(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	file, err := h.fs.Open(path)
	if err != nil {
		log.Printf("[video] failed to open %s: %v", path, err)
		setStreamingHeaders(w)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Video not found: %s", path)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Printf("[video] failed to stat %s: %v", path, err)
		setStreamingHeaders(w)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	size := info.Size()

	rangeHeader := strings.TrimSpace(r.Header.Get("Range"))
	if start, end, ok := parseRange(rangeHeader, size); ok {
		h.servePartial(w, file, path, start, end, size)
		return
	}

	// No (or unusable) range: serve the whole resource.
	data, err := afero.ReadFile(h.fs, path)
	if err != nil {
		log.Printf("[video] failed to read %s: %v", path, err)
		setStreamingHeaders(w)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	setStreamingHeaders(w)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *VideoHandler) servePartial(w http.ResponseWriter, file afero.File, path string, start, end, size int64) {
	length := end - start + 1

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		log.Printf("[video] failed to seek %s to %d: %v", path, start, err)
		setStreamingHeaders(w)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// Read the exact span up front; a response body shorter than the
	// declared length would break the player.
	buf := make([]byte, length)
	if _, err := io.ReadFull(file, buf); err != nil {
		log.Printf("[video] failed to read range %d-%d of %s: %v", start, end, path, err)
		setStreamingHeaders(w)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	setStreamingHeaders(w)
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(buf)
}

// parseRange interprets "bytes=start-end". A malformed numeric field defaults
// to its boundary value instead of failing the request: start falls back to
// 0, an empty or malformed end means end of file, and end is always clamped
// to size-1.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	if size <= 0 {
		return 0, 0, false
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || start < 0 {
		start = 0
	}

	last := size - 1
	end = last
	if trimmed := strings.TrimSpace(parts[1]); trimmed != "" {
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil && v >= 0 {
			end = v
		}
	}
	if end > last {
		end = last
	}
	if start > end {
		start = 0
	}
	return start, end, true
}
