package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"clipforge/api"
	"clipforge/config"
	"clipforge/handlers"
	"clipforge/services/devices"
	"clipforge/services/export"
	"clipforge/services/probe"
	"clipforge/services/recorder"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	// Determine config path (env or default)
	configPath := os.Getenv("CLIPFORGE_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Best-effort save so the config persists the defaults
	_ = cfgManager.Save(settings)

	prober := probe.NewService(settings.Tools.FFprobePath, settings.Tools.FFmpegPath)
	platform := recorder.DetectPlatform()
	recorderService := recorder.NewService(settings.Tools.FFmpegPath, platform)
	exportService := export.NewService(settings.Tools.FFmpegPath, prober, settings.Export.TempDirectory)
	devicesService := devices.NewService(settings.Tools.FFmpegPath, devices.ExecRunner{})

	slog.Info("clipforge backend starting",
		"platform", platform.Name(),
		"ffmpeg", settings.Tools.FFmpegPath,
		"ffprobe", settings.Tools.FFprobePath,
	)

	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewVideoHandler(afero.NewOsFs()),
		handlers.NewRecordingHandler(recorderService),
		handlers.NewExportHandler(exportService),
		handlers.NewDevicesHandler(devicesService),
		handlers.NewMediaHandler(prober, settings.Cache.Directory),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for streaming
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Finish an in-flight recording before the process exits so the encoder
	// can finalize its container.
	recorderService.StopIfRecording()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
