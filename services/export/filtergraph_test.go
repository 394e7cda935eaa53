package export

import (
	"strings"
	"testing"

	"clipforge/models"
)

func f64(v float64) *float64 { return &v }

func TestRoundMS(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{name: "already aligned", input: 2.500, want: 2.5},
		{name: "sub-millisecond drift down", input: 2.5004, want: 2.5},
		{name: "sub-millisecond drift up", input: 2.4996, want: 2.5},
		{name: "zero", input: 0, want: 0},
		{name: "negative", input: -1.2345, want: -1.234},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RoundMS(tc.input)
			if got != tc.want {
				t.Errorf("RoundMS(%v) = %v, want %v", tc.input, got, tc.want)
			}
			if again := RoundMS(got); again != got {
				t.Errorf("RoundMS not idempotent: RoundMS(%v) = %v", got, again)
			}
		})
	}
}

func TestResolveWindows(t *testing.T) {
	t.Run("audio defaults to video window", func(t *testing.T) {
		video, audio, independent := resolveWindows(models.ClipDescriptor{
			TrimStart: f64(1.0), TrimEnd: f64(5.0),
		})
		if !video.set || video.start != 1.0 || video.end != 5.0 {
			t.Fatalf("unexpected video window: %+v", video)
		}
		if audio != video {
			t.Errorf("audio window should default to video window, got %+v", audio)
		}
		if independent {
			t.Error("matching windows must not be flagged independent")
		}
	})

	t.Run("differing audio window is independent", func(t *testing.T) {
		_, audio, independent := resolveWindows(models.ClipDescriptor{
			TrimStart:      f64(1.0),
			TrimEnd:        f64(5.0),
			AudioTrimStart: f64(2.0),
			AudioTrimEnd:   f64(5.0),
		})
		if !independent {
			t.Error("differing audio window must be flagged independent")
		}
		if audio.start != 2.0 {
			t.Errorf("audio start = %v, want 2.0", audio.start)
		}
	})

	t.Run("windows are millisecond rounded", func(t *testing.T) {
		video, _, _ := resolveWindows(models.ClipDescriptor{
			TrimStart: f64(1.00049), TrimEnd: f64(5.0004),
		})
		if video.start != 1.0 || video.end != 5.0 {
			t.Errorf("windows not rounded: %+v", video)
		}
	})
}

func TestNeedsFilterGraph(t *testing.T) {
	tests := []struct {
		name string
		rc   resolvedClip
		want bool
	}{
		{
			name: "plain trimmed clip with audio",
			rc:   resolvedClip{clip: models.ClipDescriptor{AudioLinked: true}, hasAudio: true},
			want: false,
		},
		{
			name: "video muted",
			rc:   resolvedClip{clip: models.ClipDescriptor{MuteVideo: true, AudioLinked: true}, hasAudio: true},
			want: true,
		},
		{
			name: "audio muted",
			rc:   resolvedClip{clip: models.ClipDescriptor{MuteAudio: true, AudioLinked: true}, hasAudio: true},
			want: true,
		},
		{
			name: "source lacks audio",
			rc:   resolvedClip{clip: models.ClipDescriptor{AudioLinked: true}, hasAudio: false},
			want: true,
		},
		{
			name: "independent audio trim",
			rc:   resolvedClip{clip: models.ClipDescriptor{AudioLinked: true}, hasAudio: true, independentAudio: true},
			want: true,
		},
		{
			name: "unlinked with offset",
			rc:   resolvedClip{clip: models.ClipDescriptor{AudioOffset: 0.5}, hasAudio: true},
			want: true,
		},
		{
			name: "unlinked with zero offset",
			rc:   resolvedClip{clip: models.ClipDescriptor{}, hasAudio: true},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := needsFilterGraph(tc.rc); got != tc.want {
				t.Errorf("needsFilterGraph = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBuildClipGraph(t *testing.T) {
	t.Run("muted video becomes color filler of clip duration", func(t *testing.T) {
		rc := resolvedClip{
			clip:     models.ClipDescriptor{MuteVideo: true, AudioLinked: true},
			hasAudio: true,
			duration: 4.25,
		}
		got := buildClipGraph(rc).String()
		if !strings.Contains(got, "color=black:size=1920x1080:rate=30:duration=4.250[vout]") {
			t.Errorf("missing color filler branch in %q", got)
		}
	})

	t.Run("absent audio becomes silence of clip duration", func(t *testing.T) {
		rc := resolvedClip{
			clip:     models.ClipDescriptor{AudioLinked: true},
			hasAudio: false,
			duration: 3.5,
		}
		got := buildClipGraph(rc).String()
		if !strings.Contains(got, "anullsrc=r=48000:cl=stereo:d=3.500[aout]") {
			t.Errorf("missing silence branch in %q", got)
		}
		if !strings.Contains(got, "[0:v]null[vout]") {
			t.Errorf("expected passthrough video branch in %q", got)
		}
	})

	t.Run("trimmed branches reset timestamps", func(t *testing.T) {
		rc := resolvedClip{
			clip:             models.ClipDescriptor{AudioLinked: true},
			video:            window{start: 1, end: 5, set: true},
			audio:            window{start: 2, end: 5, set: true},
			hasAudio:         true,
			independentAudio: true,
			duration:         4,
		}
		got := buildClipGraph(rc).String()
		if !strings.Contains(got, "[0:v]trim=start=1.000:end=5.000,setpts=PTS-STARTPTS[vout]") {
			t.Errorf("unexpected video branch in %q", got)
		}
		if !strings.Contains(got, "[0:a]atrim=start=2.000:end=5.000,asetpts=PTS-STARTPTS[aout]") {
			t.Errorf("unexpected audio branch in %q", got)
		}
	})

	t.Run("positive offset delays audio", func(t *testing.T) {
		rc := resolvedClip{
			clip:     models.ClipDescriptor{AudioOffset: 1.5},
			audio:    window{start: 0, end: 4, set: true},
			video:    window{start: 0, end: 4, set: true},
			hasAudio: true,
			duration: 4,
		}
		got := buildClipGraph(rc).String()
		if !strings.Contains(got, "adelay=1500|1500") {
			t.Errorf("missing adelay in %q", got)
		}
	})

	t.Run("negative offset extends the leading trim", func(t *testing.T) {
		rc := resolvedClip{
			clip:     models.ClipDescriptor{AudioOffset: -0.5},
			audio:    window{start: 1, end: 4, set: true},
			video:    window{start: 1, end: 4, set: true},
			hasAudio: true,
			duration: 3,
		}
		got := buildClipGraph(rc).String()
		if !strings.Contains(got, "atrim=start=1.500:end=4.000") {
			t.Errorf("leading trim not extended in %q", got)
		}
		if strings.Contains(got, "adelay") {
			t.Errorf("negative offset must not delay audio: %q", got)
		}
	})

	t.Run("outputs are video then audio", func(t *testing.T) {
		rc := resolvedClip{clip: models.ClipDescriptor{AudioLinked: true}, hasAudio: true}
		outs := buildClipGraph(rc).outputs()
		if len(outs) != 2 || outs[0] != "vout" || outs[1] != "aout" {
			t.Errorf("unexpected outputs: %v", outs)
		}
	})
}
