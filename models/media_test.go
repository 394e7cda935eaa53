package models

import "testing"

func TestCaptureModeValid(t *testing.T) {
	for _, mode := range []CaptureMode{CaptureScreen, CaptureWebcam, CaptureCombo} {
		if !mode.Valid() {
			t.Errorf("%q should be valid", mode)
		}
	}
	for _, mode := range []CaptureMode{"", "desktop", "SCREEN"} {
		if mode.Valid() {
			t.Errorf("%q should be invalid", mode)
		}
	}
}

func TestSystemAudioActive(t *testing.T) {
	tests := []struct {
		name     string
		settings AudioSettings
		want     bool
	}{
		{name: "enabled with device", settings: AudioSettings{SystemAudioEnabled: true, SystemAudioDevice: "2"}, want: true},
		{name: "enabled without device", settings: AudioSettings{SystemAudioEnabled: true}, want: false},
		{name: "enabled with none", settings: AudioSettings{SystemAudioEnabled: true, SystemAudioDevice: "none"}, want: false},
		{name: "disabled with device", settings: AudioSettings{SystemAudioDevice: "2"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.settings.SystemAudioActive(); got != tc.want {
				t.Errorf("SystemAudioActive = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBitrate(t *testing.T) {
	tests := []struct {
		quality string
		want    string
	}{
		{quality: AudioQualityVoice, want: "64k"},
		{quality: AudioQualityStandard, want: "128k"},
		{quality: AudioQualityHigh, want: "256k"},
		{quality: "", want: "128k"},
		{quality: "unknown", want: "128k"},
	}

	for _, tc := range tests {
		a := AudioSettings{AudioQuality: tc.quality}
		if got := a.Bitrate(); got != tc.want {
			t.Errorf("Bitrate(%q) = %q, want %q", tc.quality, got, tc.want)
		}
	}
}

func TestDefaultAudioSettings(t *testing.T) {
	a := DefaultAudioSettings()
	if !a.MicrophoneEnabled || a.MicrophoneDevice != "default" {
		t.Errorf("unexpected defaults: %+v", a)
	}
	if a.SystemAudioActive() {
		t.Error("system audio must default to off")
	}
	if a.Bitrate() != "128k" {
		t.Errorf("default bitrate = %q", a.Bitrate())
	}
}
