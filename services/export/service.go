package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"clipforge/models"
)

var (
	ErrNoClips         = errors.New("no clips to export")
	ErrToolUnavailable = errors.New("ffmpeg not found; install FFmpeg and make sure it is on PATH")
)

const clipEncodeTimeout = 30 * time.Minute

// Prober answers stream questions for clip sources.
type Prober interface {
	Probe(ctx context.Context, path string) (models.MediaProbe, error)
	HasAudio(ctx context.Context, path string) (bool, error)
}

// Runner executes the external encoder and returns its stderr output, which
// carries all of ffmpeg's diagnostics.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// ProgressFunc receives ordered progress records while a multi-clip export
// runs. It may be nil.
type ProgressFunc func(models.ExportProgress)

// Service encodes and concatenates export jobs. Clips are processed strictly
// sequentially; the manifest encodes a total order that the stream-copy
// concatenation step depends on.
type Service struct {
	fs         afero.Fs
	ffmpegPath string
	prober     Prober
	runner     Runner
	tempDir    string
}

// NewService creates an export pipeline writing temp artifacts to tempDir.
func NewService(ffmpegPath string, prober Prober, tempDir string) *Service {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Service{
		fs:         afero.NewOsFs(),
		ffmpegPath: ffmpegPath,
		prober:     prober,
		runner:     execRunner{},
		tempDir:    tempDir,
	}
}

// SetFs overrides the filesystem (tests).
func (s *Service) SetFs(fs afero.Fs) { s.fs = fs }

// SetRunner overrides command execution (tests).
func (s *Service) SetRunner(r Runner) { s.runner = r }

// Export processes the job to the destination path. Every exit path deletes
// the temporary artifacts the job created.
func (s *Service) Export(ctx context.Context, job models.ExportJob, progress ProgressFunc) (string, error) {
	if len(job.Clips) == 0 {
		return "", ErrNoClips
	}
	if job.OutputPath == "" {
		return "", errors.New("output path is required")
	}

	// Sources are checked before any subprocess is spawned.
	for i, clip := range job.Clips {
		if _, err := s.fs.Stat(clip.SourcePath); err != nil {
			return "", fmt.Errorf("clip %d: input file does not exist: %s", i+1, clip.SourcePath)
		}
	}

	log.Printf("[export] starting export of %d clip(s) -> %s", len(job.Clips), job.OutputPath)

	if len(job.Clips) == 1 {
		return s.exportSingle(ctx, job.Clips[0], job.OutputPath)
	}
	return s.exportMulti(ctx, job, progress)
}

// exportSingle encodes one clip directly to the destination. No temporary
// files are created on this path.
func (s *Service) exportSingle(ctx context.Context, clip models.ClipDescriptor, outputPath string) (string, error) {
	rc, err := s.resolveClip(ctx, clip)
	if err != nil {
		return "", err
	}

	var args []string
	if needsFilterGraph(rc) {
		args = filterEncodeArgs(rc, outputPath)
	} else {
		args = directEncodeArgs(rc, outputPath)
	}

	if stderr, err := s.runEncoder(ctx, args); err != nil {
		return "", s.classifyClipError(err, stderr, 1)
	}

	log.Printf("[export] export complete: %s", outputPath)
	return outputPath, nil
}

func (s *Service) exportMulti(ctx context.Context, job models.ExportJob, progress ProgressFunc) (string, error) {
	emit := func(p models.ExportProgress) {
		if progress != nil {
			progress(p)
		}
	}

	jobID := uuid.NewString()
	total := len(job.Clips)
	tempFiles := make([]string, 0, total)

	cleanup := func() {
		for _, f := range tempFiles {
			if err := s.fs.Remove(f); err != nil && !os.IsNotExist(err) {
				log.Printf("[export] job %s: failed to remove temp file %s: %v", jobID, f, err)
			}
		}
	}

	for i, clip := range job.Clips {
		emit(models.ExportProgress{
			Current: i + 1,
			Total:   total,
			Status:  fmt.Sprintf("Exporting clip %d of %d", i+1, total),
		})

		rc, err := s.resolveClip(ctx, clip)
		if err != nil {
			cleanup()
			return "", fmt.Errorf("clip %d: %w", i+1, err)
		}

		tempPath := filepath.Join(s.tempDir, fmt.Sprintf("clipforge_%s_%03d.mp4", jobID, i))

		var args []string
		if needsFilterGraph(rc) {
			args = filterEncodeArgs(rc, tempPath)
		} else {
			args = directEncodeArgs(rc, tempPath)
		}

		log.Printf("[export] job %s: encoding clip %d/%d -> %s", jobID, i+1, total, tempPath)
		stderr, err := s.runEncoder(ctx, args)
		if err != nil {
			cleanup()
			return "", s.classifyClipError(err, stderr, i+1)
		}

		tempFiles = append(tempFiles, tempPath)
	}

	emit(models.ExportProgress{Current: total, Total: total, Status: "Merging clips"})

	manifestPath := filepath.Join(s.tempDir, fmt.Sprintf("clipforge_%s_concat.txt", jobID))
	tempFiles = append(tempFiles, manifestPath)
	defer cleanup()

	if err := s.writeManifest(manifestPath, tempFiles[:total]); err != nil {
		return "", fmt.Errorf("write concat manifest: %w", err)
	}

	// Stream copy: the clips are already normalized, so concatenation never
	// re-encodes. Failures here are infrastructural and surfaced verbatim.
	concatArgs := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-y", job.OutputPath,
	}
	log.Printf("[export] job %s: concatenating %d clips -> %s", jobID, total, job.OutputPath)
	if stderr, err := s.runEncoder(ctx, concatArgs); err != nil {
		if errors.Is(err, ErrToolUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("concatenating clips failed: %s", strings.TrimSpace(string(stderr)))
	}

	log.Printf("[export] job %s: export complete: %s", jobID, job.OutputPath)
	return job.OutputPath, nil
}

func (s *Service) writeManifest(path string, clips []string) error {
	var b strings.Builder
	for _, clip := range clips {
		fmt.Fprintf(&b, "file '%s'\n", clip)
	}
	return afero.WriteFile(s.fs, path, []byte(b.String()), 0o644)
}

// resolveClip rounds the trim windows, derives the independent-audio flag
// and computes the clip's duration from the window or a full probe.
func (s *Service) resolveClip(ctx context.Context, clip models.ClipDescriptor) (resolvedClip, error) {
	video, audio, independent := resolveWindows(clip)

	hasAudio, err := s.prober.HasAudio(ctx, clip.SourcePath)
	if err != nil {
		return resolvedClip{}, err
	}

	var duration float64
	if video.set {
		duration = video.duration()
	} else {
		p, err := s.prober.Probe(ctx, clip.SourcePath)
		if err != nil {
			return resolvedClip{}, err
		}
		duration = RoundMS(p.Duration)
	}

	return resolvedClip{
		clip:             clip,
		video:            video,
		audio:            audio,
		hasAudio:         hasAudio,
		duration:         duration,
		independentAudio: independent,
	}, nil
}

// Temp encodes use a fast preset: they only feed the lossless concatenation
// step, so pipeline latency beats compression size.
func encodeContract() []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "48000",
	}
}

// directEncodeArgs maps the source streams straight through with an input
// trim; no filter graph is synthesized.
func directEncodeArgs(rc resolvedClip, outputPath string) []string {
	args := []string{"-i", rc.clip.SourcePath}
	if rc.video.set {
		args = append(args,
			"-ss", formatSeconds(rc.video.start),
			"-t", formatSeconds(rc.duration),
		)
	}
	args = append(args, "-map", "0:v")
	if rc.hasAudio {
		args = append(args, "-map", "0:a")
	}
	args = append(args, encodeContract()...)
	args = append(args, "-y", outputPath)
	return args
}

// filterEncodeArgs routes the clip through a synthesized filter graph and
// maps its named outputs explicitly.
func filterEncodeArgs(rc resolvedClip, outputPath string) []string {
	graph := buildClipGraph(rc)

	args := []string{"-i", rc.clip.SourcePath}
	args = append(args, "-filter_complex", graph.String())
	for _, out := range graph.outputs() {
		args = append(args, "-map", "["+out+"]")
	}
	args = append(args, encodeContract()...)
	args = append(args, "-y", outputPath)
	return args
}

func (s *Service) runEncoder(ctx context.Context, args []string) ([]byte, error) {
	encodeCtx, cancel := context.WithTimeout(ctx, clipEncodeTimeout)
	defer cancel()

	stderr, err := s.runner.Run(encodeCtx, s.ffmpegPath, args...)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, exec.ErrNotFound) {
			return stderr, ErrToolUnavailable
		}
	}
	return stderr, err
}

// classifyClipError translates encoder stderr into a targeted message naming
// the failing clip. Substring matching on tool output is best-effort and
// kept in this one place.
func (s *Service) classifyClipError(err error, stderr []byte, clipIndex int) error {
	if errors.Is(err, ErrToolUnavailable) {
		return ErrToolUnavailable
	}

	diag := string(stderr)
	switch {
	case strings.Contains(diag, "No such file or directory"):
		return fmt.Errorf("clip %d: source file is missing or unreadable", clipIndex)
	case strings.Contains(diag, "Invalid data found when processing input") ||
		strings.Contains(diag, "moov atom not found"):
		return fmt.Errorf("clip %d: source file is corrupt or not a valid video", clipIndex)
	case strings.Contains(diag, "Permission denied") || strings.Contains(diag, "not permitted"):
		return fmt.Errorf("clip %d: permission denied reading source or writing output", clipIndex)
	case strings.Contains(diag, "Conversion failed") || strings.Contains(diag, "Error while decoding") ||
		strings.Contains(diag, "End of file"):
		return fmt.Errorf("clip %d: encoder failed while processing the clip", clipIndex)
	}

	// Fall back to the first few error-indicative diagnostic lines.
	var picked []string
	for _, line := range strings.Split(diag, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "invalid") ||
			strings.Contains(lower, "failed") || strings.Contains(lower, "denied") {
			picked = append(picked, strings.TrimSpace(line))
			if len(picked) == 3 {
				break
			}
		}
	}
	if len(picked) > 0 {
		return fmt.Errorf("clip %d: encoding failed: %s", clipIndex, strings.Join(picked, "; "))
	}
	return fmt.Errorf("clip %d: encoding failed: %v", clipIndex, err)
}
