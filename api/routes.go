package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"clipforge/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	videoHandler *handlers.VideoHandler,
	recordingHandler *handlers.RecordingHandler,
	exportHandler *handlers.ExportHandler,
	devicesHandler *handlers.DevicesHandler,
	mediaHandler *handlers.MediaHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Streaming playback surface; range requests come from a different
	// origin, so OPTIONS is routed explicitly.
	api.HandleFunc("/video", videoHandler.ServeVideo).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/video", videoHandler.HandleOptions).Methods(http.MethodOptions)

	// OPTIONS is registered on every endpoint: the router rejects unmatched
	// methods before the middleware runs, so preflights from the UI would
	// otherwise get a 405 without CORS headers. The middleware answers them.
	api.HandleFunc("/recording/start", recordingHandler.Start).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/recording/stop", recordingHandler.Stop).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/recording/status", recordingHandler.Status).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/export", exportHandler.Export).Methods(http.MethodPost, http.MethodOptions)

	api.HandleFunc("/devices/audio", devicesHandler.ListAudio).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/media/import", mediaHandler.Import).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/media/open", mediaHandler.OpenNative).Methods(http.MethodPost, http.MethodOptions)
}
