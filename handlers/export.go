package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"clipforge/models"
	"clipforge/services/export"
)

// Exporter runs export jobs; implemented by export.Service.
type Exporter interface {
	Export(ctx context.Context, job models.ExportJob, progress export.ProgressFunc) (string, error)
}

// ExportHandler exposes the clip export pipeline. Progress is streamed to
// the client as newline-delimited JSON records, one per pipeline step,
// followed by a terminal record carrying the result or the error.
type ExportHandler struct {
	exporter Exporter
}

func NewExportHandler(exporter Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

type exportResult struct {
	Done       bool   `json:"done"`
	OutputPath string `json:"outputPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Export runs a job and streams ordered progress records.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var job models.ExportJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	progress := func(p models.ExportProgress) {
		if err := enc.Encode(p); err != nil {
			log.Printf("[export] failed to write progress record: %v", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	outputPath, err := h.exporter.Export(r.Context(), job, progress)
	if err != nil {
		log.Printf("[export] job failed: %v", err)
		_ = enc.Encode(exportResult{Done: true, Error: err.Error()})
		if flusher != nil {
			flusher.Flush()
		}
		return
	}

	_ = enc.Encode(exportResult{Done: true, OutputPath: outputPath})
	if flusher != nil {
		flusher.Flush()
	}
}
