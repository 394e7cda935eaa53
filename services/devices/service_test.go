package devices

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clipforge/models"
)

type fakeRunner struct {
	output string
	err    error
	args   []string
}

func (r *fakeRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.args = args
	return []byte(r.output), r.err
}

const avfListing = `[AVFoundation indev @ 0x7f8a1c604f80] AVFoundation video devices:
[AVFoundation indev @ 0x7f8a1c604f80] [0] FaceTime HD Camera
[AVFoundation indev @ 0x7f8a1c604f80] [1] Capture screen 0
[AVFoundation indev @ 0x7f8a1c604f80] AVFoundation audio devices:
[AVFoundation indev @ 0x7f8a1c604f80] [0] MacBook Pro Microphone
[AVFoundation indev @ 0x7f8a1c604f80] [1] BlackHole 2ch
[AVFoundation indev @ 0x7f8a1c604f80] [2] External USB Mic
: Input/output error
`

func TestParseAVFoundationDevices(t *testing.T) {
	got := ParseAVFoundationDevices(avfListing)
	if len(got) != 3 {
		t.Fatalf("parsed %d devices, want 3: %+v", len(got), got)
	}

	want := []models.AudioDevice{
		{ID: "0", Name: "MacBook Pro Microphone", Type: models.AudioDeviceInput},
		{ID: "1", Name: "BlackHole 2ch", Type: models.AudioDeviceVirtual},
		{ID: "2", Name: "External USB Mic", Type: models.AudioDeviceInput},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("device %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseAVFoundationDevicesIgnoresVideoSection(t *testing.T) {
	for _, d := range ParseAVFoundationDevices(avfListing) {
		if strings.Contains(d.Name, "Camera") || strings.Contains(d.Name, "Capture screen") {
			t.Errorf("video device leaked into audio list: %+v", d)
		}
	}
}

func TestParseAVFoundationDevicesEmpty(t *testing.T) {
	if got := ParseAVFoundationDevices(""); len(got) != 0 {
		t.Errorf("empty listing produced %+v", got)
	}
	if got := ParseAVFoundationDevices("random stderr noise\nerror: nope"); len(got) != 0 {
		t.Errorf("noise listing produced %+v", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "MacBook Pro Microphone", want: models.AudioDeviceInput},
		{name: "BlackHole 2ch", want: models.AudioDeviceVirtual},
		{name: "Soundflower (2ch)", want: models.AudioDeviceVirtual},
		{name: "Loopback Audio", want: models.AudioDeviceVirtual},
		{name: "External USB Mic", want: models.AudioDeviceInput},
	}

	for _, tc := range tests {
		if got := Classify(tc.name); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestListDarwin(t *testing.T) {
	// ffmpeg exits nonzero after printing the table; the error is ignored.
	runner := &fakeRunner{output: avfListing, err: errors.New("exit status 1")}
	svc := NewService("ffmpeg", runner)
	svc.SetGOOS("darwin")

	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("listed %d devices, want 3", len(got))
	}

	args := strings.Join(runner.args, " ")
	if !strings.Contains(args, "-f avfoundation") || !strings.Contains(args, "-list_devices true") {
		t.Errorf("unexpected listing args %q", args)
	}
}

func TestListDarwinFallsBackToDefault(t *testing.T) {
	runner := &fakeRunner{output: "", err: errors.New("exit status 1")}
	svc := NewService("ffmpeg", runner)
	svc.SetGOOS("darwin")

	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "0" || got[0].Type != models.AudioDeviceInput {
		t.Fatalf("expected single synthetic default device, got %+v", got)
	}
}

func TestListNonDarwin(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewService("ffmpeg", runner)
	svc.SetGOOS("linux")

	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Default Microphone" {
		t.Fatalf("expected synthetic default device, got %+v", got)
	}
	if runner.args != nil {
		t.Error("device listing must not be attempted off darwin")
	}
}
