package probe

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

type fakeRunner struct {
	output []byte
	err    error
	args   []string
}

func (r *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.args = args
	return r.output, r.err
}

const fullProbeJSON = `{
	"format": {"duration": "12.480000"},
	"streams": [
		{"index": 0, "codec_type": "video", "width": 1280, "height": 720},
		{"index": 1, "codec_type": "audio"}
	]
}`

func TestParseProbeOutput(t *testing.T) {
	t.Run("full metadata", func(t *testing.T) {
		got, err := parseProbeOutput([]byte(fullProbeJSON))
		if err != nil {
			t.Fatal(err)
		}
		if got.Duration != 12.48 {
			t.Errorf("Duration = %v, want 12.48", got.Duration)
		}
		if got.Width != 1280 || got.Height != 720 {
			t.Errorf("dimensions = %dx%d, want 1280x720", got.Width, got.Height)
		}
		if !got.HasAudio {
			t.Error("HasAudio = false, want true")
		}
	})

	t.Run("missing duration yields zero", func(t *testing.T) {
		got, err := parseProbeOutput([]byte(`{"format": {}, "streams": [{"index": 0, "codec_type": "video", "width": 640, "height": 480}]}`))
		if err != nil {
			t.Fatal(err)
		}
		if got.Duration != 0 {
			t.Errorf("Duration = %v, want 0", got.Duration)
		}
	})

	t.Run("missing dimensions fall back", func(t *testing.T) {
		got, err := parseProbeOutput([]byte(`{"format": {"duration": "3.0"}, "streams": [{"index": 0, "codec_type": "video"}]}`))
		if err != nil {
			t.Fatal(err)
		}
		if got.Width != 1920 || got.Height != 1080 {
			t.Errorf("dimensions = %dx%d, want fallback 1920x1080", got.Width, got.Height)
		}
	})

	t.Run("first video stream wins", func(t *testing.T) {
		got, err := parseProbeOutput([]byte(`{"format": {"duration": "3.0"}, "streams": [
			{"index": 0, "codec_type": "video", "width": 100, "height": 50},
			{"index": 1, "codec_type": "video", "width": 999, "height": 999}
		]}`))
		if err != nil {
			t.Fatal(err)
		}
		if got.Width != 100 || got.Height != 50 {
			t.Errorf("dimensions = %dx%d, want 100x50", got.Width, got.Height)
		}
	})

	t.Run("audio only file", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`{"format": {"duration": "3.0"}, "streams": [{"index": 0, "codec_type": "audio"}]}`))
		if !errors.Is(err, ErrNoVideoStream) {
			t.Errorf("error = %v, want ErrNoVideoStream", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`not json`))
		if err == nil || !strings.Contains(err.Error(), "parse ffprobe output") {
			t.Errorf("error = %v, want parse failure", err)
		}
	})
}

func TestProbe(t *testing.T) {
	runner := &fakeRunner{output: []byte(fullProbeJSON)}
	svc := NewService("ffprobe", "ffmpeg")
	svc.SetRunner(runner)

	got, err := svc.Probe(context.Background(), "/media/a.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if got.Duration != 12.48 {
		t.Errorf("Duration = %v", got.Duration)
	}

	args := strings.Join(runner.args, " ")
	for _, want := range []string{"-print_format json", "-show_format", "-show_streams", "-i /media/a.mp4"} {
		if !strings.Contains(args, want) {
			t.Errorf("missing %q in probe args %q", want, args)
		}
	}
}

func TestProbeToolMissing(t *testing.T) {
	runner := &fakeRunner{err: &exec.Error{Name: "ffprobe", Err: exec.ErrNotFound}}
	svc := NewService("ffprobe", "ffmpeg")
	svc.SetRunner(runner)

	if _, err := svc.Probe(context.Background(), "/media/a.mp4"); !errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("error = %v, want ErrToolUnavailable", err)
	}
	if _, err := svc.HasAudio(context.Background(), "/media/a.mp4"); !errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("HasAudio error = %v, want ErrToolUnavailable", err)
	}
}

func TestHasAudio(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{name: "audio present", output: `{"streams": [{"index": 1}]}`, want: true},
		{name: "no audio streams", output: `{"streams": []}`, want: false},
		{name: "streams omitted", output: `{}`, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{output: []byte(tc.output)}
			svc := NewService("ffprobe", "ffmpeg")
			svc.SetRunner(runner)

			got, err := svc.HasAudio(context.Background(), "/media/a.mp4")
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("HasAudio = %v, want %v", got, tc.want)
			}

			args := strings.Join(runner.args, " ")
			if !strings.Contains(args, "-select_streams a") {
				t.Errorf("audio check must restrict stream selection, got %q", args)
			}
		})
	}
}
