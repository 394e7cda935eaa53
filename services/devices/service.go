package devices

import (
	"context"
	"log"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"clipforge/models"
)

const listTimeout = 10 * time.Second

// Runner executes ffmpeg and returns its combined output. Device listing is
// reported on stderr, and ffmpeg exits nonzero after printing it, so the
// runner must hand the output back even on error.
type Runner interface {
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs the real ffmpeg binary.
type ExecRunner struct{}

func (ExecRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Service enumerates audio capture devices via ffmpeg's device listing.
type Service struct {
	ffmpegPath string
	goos       string
	runner     Runner
}

// NewService creates a device enumerator for the current platform.
func NewService(ffmpegPath string, runner Runner) *Service {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Service{ffmpegPath: ffmpegPath, goos: runtime.GOOS, runner: runner}
}

// SetGOOS overrides platform detection (tests).
func (s *Service) SetGOOS(goos string) { s.goos = goos }

// List returns the discoverable audio devices. A synthetic default device is
// returned when nothing is discoverable, never an empty list.
func (s *Service) List(ctx context.Context) ([]models.AudioDevice, error) {
	if s.goos != "darwin" {
		return []models.AudioDevice{defaultDevice()}, nil
	}

	listCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	// -list_devices makes ffmpeg print the device table to stderr and exit
	// nonzero; the exit status carries no signal here.
	output, _ := s.runner.CombinedOutput(listCtx, s.ffmpegPath,
		"-f", "avfoundation",
		"-list_devices", "true",
		"-i", "",
	)

	found := ParseAVFoundationDevices(string(output))
	if len(found) == 0 {
		found = []models.AudioDevice{defaultDevice()}
	}

	log.Printf("[devices] found %d audio device(s)", len(found))
	return found, nil
}

// ParseAVFoundationDevices extracts the audio device table from ffmpeg's
// AVFoundation device listing. Lines look like:
//
//	[AVFoundation indev @ 0x...] [1] MacBook Pro Microphone
func ParseAVFoundationDevices(listing string) []models.AudioDevice {
	var found []models.AudioDevice

	inAudioSection := false
	for _, line := range strings.Split(listing, "\n") {
		if strings.Contains(line, "AVFoundation audio devices:") {
			inAudioSection = true
			continue
		}
		if strings.Contains(line, "AVFoundation video devices:") {
			inAudioSection = false
		}
		if !inAudioSection {
			continue
		}
		if strings.Contains(strings.ToLower(line), "error") {
			continue
		}

		// The device ID is the last bracketed field on the line.
		start := strings.LastIndex(line, "[")
		end := strings.LastIndex(line, "]")
		if start < 0 || end <= start+1 || start <= 5 {
			continue
		}

		id := line[start+1 : end]
		name := strings.TrimSpace(line[end+1:])
		if name == "" {
			continue
		}
		if _, err := strconv.ParseUint(id, 10, 32); err != nil {
			continue
		}

		found = append(found, models.AudioDevice{
			ID:   id,
			Name: name,
			Type: Classify(name),
		})
	}

	return found
}

// Classify labels a device "virtual" when its name matches a known loopback
// driver, otherwise "input".
func Classify(name string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "blackhole") ||
		strings.Contains(lower, "soundflower") ||
		strings.Contains(lower, "loopback") {
		return models.AudioDeviceVirtual
	}
	return models.AudioDeviceInput
}

func defaultDevice() models.AudioDevice {
	return models.AudioDevice{ID: "0", Name: "Default Microphone", Type: models.AudioDeviceInput}
}
