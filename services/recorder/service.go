package recorder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"clipforge/models"
)

var (
	ErrRecordingInProgress = errors.New("recording already in progress")
	ErrNoActiveRecording   = errors.New("no active recording")
	ErrToolUnavailable     = errors.New("ffmpeg not found; install FFmpeg and make sure it is on PATH")
)

const (
	// Grace period after spawning the encoder before the liveness poll: long
	// enough for ffmpeg to validate its inputs and fail fast on bad devices.
	startGracePeriod = 500 * time.Millisecond

	// Wait after a clean exit so buffered container writes land on disk
	// before the recording is declared complete.
	stopFlushPeriod = 500 * time.Millisecond
)

// StartOptions describes a recording request.
type StartOptions struct {
	Mode       models.CaptureMode   `json:"mode"`
	OutputPath string               `json:"outputPath"`
	Audio      *models.AudioSettings `json:"audioSettings,omitempty"`
}

// Status reports the controller's current state.
type Status struct {
	Recording  bool               `json:"recording"`
	SessionID  string             `json:"sessionId,omitempty"`
	Mode       models.CaptureMode `json:"mode,omitempty"`
	OutputPath string             `json:"outputPath,omitempty"`
	StartedAt  *time.Time         `json:"startedAt,omitempty"`
}

// Service owns the single recording slot. All state transitions hold the
// mutex for their full duration, so a concurrent start while recording fails
// fast instead of queuing.
type Service struct {
	mu       sync.Mutex
	platform Platform
	launcher Launcher
	session  *session

	grace time.Duration
	flush time.Duration
}

type session struct {
	id         string
	mode       models.CaptureMode
	outputPath string
	startedAt  time.Time
	proc       Process
	diag       *diagnosticBuffer
	readers    conc.WaitGroup
}

// NewService creates a controller that records via the given ffmpeg binary.
func NewService(ffmpegPath string, platform Platform) *Service {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Service{
		platform: platform,
		launcher: &execLauncher{ffmpegPath: ffmpegPath},
		grace:    startGracePeriod,
		flush:    stopFlushPeriod,
	}
}

// SetLauncher overrides process creation (tests).
func (s *Service) SetLauncher(l Launcher) { s.launcher = l }

// SetTimings overrides the grace and flush periods (tests).
func (s *Service) SetTimings(grace, flush time.Duration) {
	s.grace = grace
	s.flush = flush
}

// Start transitions Idle -> Recording. The transition only commits if the
// encoder is still alive after the grace period; an immediate exit is a
// startup failure carrying the collected diagnostics.
func (s *Service) Start(opts StartOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return "", ErrRecordingInProgress
	}
	if !opts.Mode.Valid() {
		return "", ErrInvalidMode
	}
	if opts.OutputPath == "" {
		return "", errors.New("output path is required")
	}

	audio := models.DefaultAudioSettings()
	if opts.Audio != nil {
		audio = *opts.Audio
	}

	args, err := buildArgs(s.platform, opts.Mode, audio, opts.OutputPath)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	log.Printf("[recorder] session %s: starting %s capture -> %s", id, opts.Mode, opts.OutputPath)

	proc, err := s.launcher.Launch(args)
	if err != nil {
		if errors.Is(err, ErrToolUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("start encoder: %w", err)
	}

	sess := &session{
		id:         id,
		mode:       opts.Mode,
		outputPath: opts.OutputPath,
		startedAt:  time.Now(),
		proc:       proc,
		diag:       newDiagnosticBuffer(),
	}
	sess.readers.Go(func() { readDiagnostics(id, proc.Stderr(), sess.diag) })

	time.Sleep(s.grace)

	if !proc.Running() {
		// The encoder already exited: startup failure. Drain the reader so
		// the diagnostic tail is complete, then classify.
		_ = proc.Wait()
		sess.readers.Wait()
		diag := sess.diag.Tail()
		log.Printf("[recorder] session %s: encoder exited during startup: %s", id, diag)
		return "", fmt.Errorf("encoder failed to start: %s", classifyDiagnostics(diag))
	}

	s.session = sess
	log.Printf("[recorder] session %s: recording (PID grace passed)", id)
	return "Recording started", nil
}

// Stop transitions Recording -> Idle. The encoder is asked to finish via the
// interrupt signal so it can finalize its container, and the caller blocks
// until it exits.
func (s *Service) Stop() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return "", ErrNoActiveRecording
	}
	sess := s.session
	s.session = nil

	log.Printf("[recorder] session %s: stopping", sess.id)
	if err := sess.proc.Interrupt(); err != nil {
		// The interrupt signal is not deliverable on every platform. Fall
		// back to a hard kill rather than waiting on a process that was
		// never told to stop.
		log.Printf("[recorder] session %s: interrupt failed, killing: %v", sess.id, err)
		if killErr := sess.proc.Kill(); killErr != nil {
			log.Printf("[recorder] session %s: kill failed: %v", sess.id, killErr)
		}
	}

	waitErr := sess.proc.Wait()
	sess.readers.Wait()

	if !isNormalExit(waitErr) {
		diag := sess.diag.Tail()
		log.Printf("[recorder] session %s: abnormal exit: %v: %s", sess.id, waitErr, diag)
		return "", fmt.Errorf("recording failed: %s", classifyDiagnostics(diag))
	}

	// Let buffered writes land before reporting the file as ready.
	time.Sleep(s.flush)

	log.Printf("[recorder] session %s: recording stopped, output at %s", sess.id, sess.outputPath)
	return "Recording stopped", nil
}

// Status reports whether a session is live and its metadata.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return Status{}
	}
	started := s.session.startedAt
	return Status{
		Recording:  true,
		SessionID:  s.session.id,
		Mode:       s.session.mode,
		OutputPath: s.session.outputPath,
		StartedAt:  &started,
	}
}

// StopIfRecording stops an in-flight session during shutdown; a missing
// session is not an error.
func (s *Service) StopIfRecording() {
	if _, err := s.Stop(); err != nil && !errors.Is(err, ErrNoActiveRecording) {
		log.Printf("[recorder] shutdown stop: %v", err)
	}
}

// Keywords that indicate capture buffer or synchronization trouble; lines
// matching these are logged at elevated severity.
var diagnosticKeywords = []string{"drop", "underrun", "overrun", "discontinuity"}

// readDiagnostics consumes the encoder's stderr line by line. It owns the
// stream handle exclusively, holds no lock and never blocks a state
// transition.
func readDiagnostics(sessionID string, r io.Reader, diag *diagnosticBuffer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		line := scanner.Text()
		diag.Append(line)

		lower := strings.ToLower(line)
		elevated := false
		for _, kw := range diagnosticKeywords {
			if strings.Contains(lower, kw) {
				elevated = true
				break
			}
		}
		if elevated {
			log.Printf("[recorder] session %s: WARN encoder: %s", sessionID, line)
		} else {
			log.Printf("[recorder] session %s: encoder: %s", sessionID, line)
		}
	}
}

// classifyDiagnostics translates encoder stderr into a user-actionable
// message. Substring matching on tool output is best-effort and deliberately
// isolated here so it can be swapped for structured output if the tool ever
// grows one.
func classifyDiagnostics(diag string) string {
	switch {
	case strings.Contains(diag, "Operation not permitted") || strings.Contains(diag, "not permitted"):
		return "screen recording permission denied; grant access in System Settings > Privacy & Security > Screen Recording"
	case strings.Contains(diag, "Invalid device"):
		return "invalid audio device selected"
	}
	for _, line := range strings.Split(diag, "\n") {
		if strings.Contains(line, "Error") && !strings.Contains(line, "Exiting normally") {
			return strings.TrimSpace(line)
		}
	}
	if strings.TrimSpace(diag) == "" {
		return "encoder exited unexpectedly"
	}
	return strings.TrimSpace(diag)
}

// diagnosticBuffer keeps a bounded tail of encoder stderr lines.
type diagnosticBuffer struct {
	mu    sync.Mutex
	lines []string
}

const diagnosticTailLines = 50

func newDiagnosticBuffer() *diagnosticBuffer {
	return &diagnosticBuffer{}
}

func (b *diagnosticBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > diagnosticTailLines {
		b.lines = b.lines[len(b.lines)-diagnosticTailLines:]
	}
}

func (b *diagnosticBuffer) Tail() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
