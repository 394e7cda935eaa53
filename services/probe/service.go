package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"clipforge/models"
)

var (
	ErrToolUnavailable = errors.New("ffprobe not found; install FFmpeg and make sure it is on PATH")
	ErrNoVideoStream   = errors.New("file contains no video stream")
)

const probeTimeout = 15 * time.Second

// Fallback resolution when the first video stream does not report explicit
// dimensions. A safe default for downstream filter sizing, not a success lie.
const (
	fallbackWidth  = 1920
	fallbackHeight = 1080
)

// Runner executes the external probing tool and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Service answers duration/resolution/stream-presence questions about media
// files by driving ffprobe. Results are never cached; every call re-probes.
type Service struct {
	ffprobePath string
	ffmpegPath  string
	runner      Runner
}

// NewService creates a prober using the provided tool paths.
func NewService(ffprobePath, ffmpegPath string) *Service {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Service{ffprobePath: ffprobePath, ffmpegPath: ffmpegPath, runner: execRunner{}}
}

// SetRunner overrides command execution (tests).
func (s *Service) SetRunner(r Runner) { s.runner = r }

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Probe returns duration, resolution and audio presence for a media file.
func (s *Service) Probe(ctx context.Context, path string) (models.MediaProbe, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-i", path,
	}

	output, err := s.runner.Output(probeCtx, s.ffprobePath, args...)
	if err != nil {
		if isToolMissing(err) {
			return models.MediaProbe{}, ErrToolUnavailable
		}
		return models.MediaProbe{}, fmt.Errorf("ffprobe execution: %w", err)
	}

	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (models.MediaProbe, error) {
	var data ffprobeOutput
	if err := json.Unmarshal(output, &data); err != nil {
		return models.MediaProbe{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	result := models.MediaProbe{}

	if data.Format.Duration != "" {
		if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil {
			result.Duration = d
		}
	}

	var video *ffprobeStream
	for i := range data.Streams {
		switch data.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &data.Streams[i]
			}
		case "audio":
			result.HasAudio = true
		}
	}

	if video == nil {
		return models.MediaProbe{}, ErrNoVideoStream
	}

	result.Width = video.Width
	result.Height = video.Height
	if result.Width == 0 || result.Height == 0 {
		result.Width = fallbackWidth
		result.Height = fallbackHeight
	}

	return result, nil
}

// HasAudio answers "does this file have an audio stream" without a full
// probe, restricting stream selection to audio-typed streams.
func (s *Service) HasAudio(ctx context.Context, path string) (bool, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index,codec_type",
		"-of", "json",
		"-i", path,
	}

	output, err := s.runner.Output(probeCtx, s.ffprobePath, args...)
	if err != nil {
		if isToolMissing(err) {
			return false, ErrToolUnavailable
		}
		return false, fmt.Errorf("ffprobe execution: %w", err)
	}

	var data struct {
		Streams []struct {
			Index int `json:"index"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return false, fmt.Errorf("parse ffprobe output: %w", err)
	}

	return len(data.Streams) > 0, nil
}

func isToolMissing(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) || errors.Is(err, exec.ErrNotFound)
}
