package recorder

import (
	"errors"
	"fmt"
	"runtime"

	"clipforge/models"
)

var ErrInvalidMode = errors.New("invalid recording mode")

// Capture output contract shared by every mode and platform: constant 30fps,
// keyframe every second, no B-frames, moov atom up front so the file can be
// played while it is still being written.
const (
	captureFramerate = "30"
	captureScale     = "scale=1920:1080:force_original_aspect_ratio=decrease:force_divisible_by=2"
)

// Picture-in-picture geometry for combo mode: camera scaled to a fixed width
// and pinned to the bottom-right corner with a fixed margin.
const (
	pipWidth  = 480
	pipMargin = 20
)

// Invocation is the synthesized input half of an ffmpeg capture command.
// Args covers the input devices plus any filter graph and stream maps; the
// service appends the shared output contract.
type Invocation struct {
	Args []string

	// VideoFiltered marks that the filter graph already shapes the video
	// output, so the simple scale filter must not be applied on top.
	VideoFiltered bool
}

// Platform synthesizes capture invocations for one operating system.
type Platform interface {
	Name() string
	Synthesize(mode models.CaptureMode, audio models.AudioSettings) (Invocation, error)
}

// DetectPlatform selects the strategy for the current operating system.
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return DarwinPlatform{}
	case "windows":
		return WindowsPlatform{}
	default:
		return LinuxPlatform{}
	}
}

// DarwinPlatform captures through AVFoundation. Screen is device 1, camera
// is device 0; audio devices are addressed by the index reported by the
// device listing.
type DarwinPlatform struct{}

func (DarwinPlatform) Name() string { return "darwin" }

func (DarwinPlatform) Synthesize(mode models.CaptureMode, audio models.AudioSettings) (Invocation, error) {
	mic := audio.MicrophoneDevice
	if mic == "" || mic == "default" {
		mic = "0"
	}
	micOn := audio.MicrophoneEnabled
	sysOn := audio.SystemAudioActive()
	sysDev := audio.SystemAudioDevice
	if sysDev == "" || sysDev == "none" {
		sysDev = "1"
	}

	switch mode {
	case models.CaptureScreen:
		base := []string{"-f", "avfoundation", "-capture_cursor", "1", "-framerate", captureFramerate}
		switch {
		case micOn && sysOn:
			// Separate inputs for each audio source; the capture layer must
			// not pre-mix independently-timestamped streams.
			args := append(base, "-i", "1:none")
			args = append(args, "-f", "avfoundation", "-i", ":"+mic)
			args = append(args, "-f", "avfoundation", "-i", ":"+sysDev)
			args = append(args,
				"-filter_complex", "[1:a][2:a]amerge=inputs=2[aout]",
				"-map", "0:v",
				"-map", "[aout]",
			)
			return Invocation{Args: args}, nil
		case micOn:
			return Invocation{Args: append(base, "-i", "1:"+mic)}, nil
		case sysOn:
			return Invocation{Args: append(base, "-i", "1:"+sysDev)}, nil
		default:
			return Invocation{Args: append(base, "-i", "1:none")}, nil
		}

	case models.CaptureWebcam:
		input := "0:none"
		if micOn {
			input = "0:" + mic
		}
		args := []string{"-f", "avfoundation", "-framerate", captureFramerate, "-i", input}
		args = append(args, "-map", "0:v")
		if micOn {
			args = append(args, "-map", "0:a")
		}
		return Invocation{Args: args}, nil

	case models.CaptureCombo:
		// Two video inputs composited into one stream: screen as the base,
		// camera scaled into a corner overlay.
		args := []string{
			"-f", "avfoundation", "-capture_cursor", "1", "-framerate", captureFramerate, "-i", "1:none",
			"-f", "avfoundation", "-framerate", captureFramerate, "-i", "0:none",
		}
		audioInputs := 0
		if micOn {
			args = append(args, "-f", "avfoundation", "-i", ":"+mic)
			audioInputs++
		}
		if sysOn {
			args = append(args, "-f", "avfoundation", "-i", ":"+sysDev)
			audioInputs++
		}

		graph := comboVideoGraph()
		maps := []string{"-map", "[vout]"}
		switch audioInputs {
		case 2:
			graph += ";[2:a][3:a]amerge=inputs=2[aout]"
			maps = append(maps, "-map", "[aout]")
		case 1:
			maps = append(maps, "-map", "2:a")
		}

		args = append(args, "-filter_complex", graph)
		args = append(args, maps...)
		return Invocation{Args: args, VideoFiltered: true}, nil
	}

	return Invocation{}, ErrInvalidMode
}

// WindowsPlatform captures the desktop with gdigrab and devices via dshow.
type WindowsPlatform struct{}

func (WindowsPlatform) Name() string { return "windows" }

func (WindowsPlatform) Synthesize(mode models.CaptureMode, audio models.AudioSettings) (Invocation, error) {
	micOn := audio.MicrophoneEnabled
	sysOn := audio.SystemAudioActive()

	audioInput := func(device string) []string {
		return []string{"-f", "dshow", "-i", "audio=" + device}
	}

	switch mode {
	case models.CaptureScreen:
		args := []string{"-f", "gdigrab", "-framerate", captureFramerate, "-i", "desktop"}
		switch {
		case micOn && sysOn:
			args = append(args, audioInput(audio.MicrophoneDevice)...)
			args = append(args, audioInput(audio.SystemAudioDevice)...)
			args = append(args,
				"-filter_complex", "[1:a][2:a]amerge=inputs=2[aout]",
				"-map", "0:v",
				"-map", "[aout]",
			)
		case micOn:
			args = append(args, audioInput(audio.MicrophoneDevice)...)
			args = append(args, "-map", "0:v", "-map", "1:a")
		case sysOn:
			args = append(args, audioInput(audio.SystemAudioDevice)...)
			args = append(args, "-map", "0:v", "-map", "1:a")
		}
		return Invocation{Args: args}, nil

	case models.CaptureWebcam:
		input := "video=default"
		if micOn {
			input = fmt.Sprintf("video=default:audio=%s", defaultString(audio.MicrophoneDevice, "default"))
		}
		args := []string{"-f", "dshow", "-framerate", captureFramerate, "-i", input}
		return Invocation{Args: args}, nil

	case models.CaptureCombo:
		args := []string{
			"-f", "gdigrab", "-framerate", captureFramerate, "-i", "desktop",
			"-f", "dshow", "-framerate", captureFramerate, "-i", "video=default",
		}
		audioInputs := 0
		if micOn {
			args = append(args, audioInput(audio.MicrophoneDevice)...)
			audioInputs++
		}
		if sysOn {
			args = append(args, audioInput(audio.SystemAudioDevice)...)
			audioInputs++
		}

		graph := comboVideoGraph()
		maps := []string{"-map", "[vout]"}
		switch audioInputs {
		case 2:
			graph += ";[2:a][3:a]amerge=inputs=2[aout]"
			maps = append(maps, "-map", "[aout]")
		case 1:
			maps = append(maps, "-map", "2:a")
		}

		args = append(args, "-filter_complex", graph)
		args = append(args, maps...)
		return Invocation{Args: args, VideoFiltered: true}, nil
	}

	return Invocation{}, ErrInvalidMode
}

// LinuxPlatform captures X11 with x11grab, cameras via v4l2 and audio via
// PulseAudio.
type LinuxPlatform struct{}

func (LinuxPlatform) Name() string { return "linux" }

func (LinuxPlatform) Synthesize(mode models.CaptureMode, audio models.AudioSettings) (Invocation, error) {
	micOn := audio.MicrophoneEnabled
	sysOn := audio.SystemAudioActive()

	pulseInput := func(device string) []string {
		return []string{"-f", "pulse", "-i", defaultString(device, "default")}
	}

	switch mode {
	case models.CaptureScreen:
		args := []string{"-f", "x11grab", "-framerate", captureFramerate, "-i", ":0.0"}
		switch {
		case micOn && sysOn:
			args = append(args, pulseInput(audio.MicrophoneDevice)...)
			args = append(args, pulseInput(audio.SystemAudioDevice)...)
			args = append(args,
				"-filter_complex", "[1:a][2:a]amerge=inputs=2[aout]",
				"-map", "0:v",
				"-map", "[aout]",
			)
		case micOn:
			args = append(args, pulseInput(audio.MicrophoneDevice)...)
			args = append(args, "-map", "0:v", "-map", "1:a")
		case sysOn:
			args = append(args, pulseInput(audio.SystemAudioDevice)...)
			args = append(args, "-map", "0:v", "-map", "1:a")
		}
		return Invocation{Args: args}, nil

	case models.CaptureWebcam:
		args := []string{"-f", "v4l2", "-framerate", captureFramerate, "-i", "/dev/video0"}
		if micOn {
			args = append(args, pulseInput(audio.MicrophoneDevice)...)
			args = append(args, "-map", "0:v", "-map", "1:a")
		}
		return Invocation{Args: args}, nil

	case models.CaptureCombo:
		args := []string{
			"-f", "x11grab", "-framerate", captureFramerate, "-i", ":0.0",
			"-f", "v4l2", "-framerate", captureFramerate, "-i", "/dev/video0",
		}
		audioInputs := 0
		if micOn {
			args = append(args, pulseInput(audio.MicrophoneDevice)...)
			audioInputs++
		}
		if sysOn {
			args = append(args, pulseInput(audio.SystemAudioDevice)...)
			audioInputs++
		}

		graph := comboVideoGraph()
		maps := []string{"-map", "[vout]"}
		switch audioInputs {
		case 2:
			graph += ";[2:a][3:a]amerge=inputs=2[aout]"
			maps = append(maps, "-map", "[aout]")
		case 1:
			maps = append(maps, "-map", "2:a")
		}

		args = append(args, "-filter_complex", graph)
		args = append(args, maps...)
		return Invocation{Args: args, VideoFiltered: true}, nil
	}

	return Invocation{}, ErrInvalidMode
}

func comboVideoGraph() string {
	return fmt.Sprintf(
		"[0:v]%s[base];[1:v]scale=%d:-2[pip];[base][pip]overlay=W-w-%d:H-h-%d[vout]",
		captureScale, pipWidth, pipMargin, pipMargin,
	)
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// buildArgs assembles the full ffmpeg argument list for a recording: the
// platform inputs followed by the fixed output contract.
func buildArgs(platform Platform, mode models.CaptureMode, audio models.AudioSettings, outputPath string) ([]string, error) {
	inv, err := platform.Synthesize(mode, audio)
	if err != nil {
		return nil, err
	}

	args := inv.Args
	if !inv.VideoFiltered {
		args = append(args, "-vf", captureScale)
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-tune", "fastdecode",
		"-profile:v", "main",
		"-level", "4.0",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-r", captureFramerate,
		"-vsync", "cfr",
		"-g", captureFramerate,
		"-bf", "0",
		"-movflags", "+faststart",
		"-video_track_timescale", "90000",
	)

	if audio.MicrophoneEnabled || audio.SystemAudioActive() {
		args = append(args,
			"-c:a", "aac",
			"-b:a", audio.Bitrate(),
			"-ar", "48000",
		)
	}

	args = append(args, "-y", outputPath)
	return args, nil
}
