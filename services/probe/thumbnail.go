package probe

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Thumbnail width; height follows the source aspect ratio.
const thumbnailWidth = 320

// Thumbnail extracts a single representative frame from the file and writes
// it to a content-addressed path inside cacheDir. The seek point is 10% into
// the file, capped at 2 seconds so very long recordings still thumbnail
// quickly. The caller treats failure as non-fatal.
func (s *Service) Thumbnail(ctx context.Context, path, cacheDir string) (string, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail cache: %w", err)
	}

	hash := md5.Sum([]byte(path))
	cachePath := filepath.Join(cacheDir, fmt.Sprintf("%x.jpg", hash))

	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	seek := 0.0
	if p, err := s.Probe(ctx, path); err == nil && p.Duration > 0 {
		seek = p.Duration * 0.1
		if seek > 2.0 {
			seek = 2.0
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 3, 64),
		"-i", path,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", thumbnailWidth),
		"-y",
		cachePath,
	}

	if _, err := s.runner.Output(probeCtx, s.ffmpegPath, args...); err != nil {
		if isToolMissing(err) {
			return "", ErrToolUnavailable
		}
		return "", fmt.Errorf("extract thumbnail frame: %w", err)
	}

	return cachePath, nil
}
