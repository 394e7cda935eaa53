package models

// CaptureMode selects which physical inputs a recording session opens.
type CaptureMode string

const (
	CaptureScreen CaptureMode = "screen"
	CaptureWebcam CaptureMode = "webcam"
	CaptureCombo  CaptureMode = "combo"
)

// Valid reports whether the mode is one of the supported capture modes.
func (m CaptureMode) Valid() bool {
	switch m {
	case CaptureScreen, CaptureWebcam, CaptureCombo:
		return true
	}
	return false
}

// AudioQuality tiers map to fixed AAC bitrates.
const (
	AudioQualityVoice    = "voice"
	AudioQualityStandard = "standard"
	AudioQualityHigh     = "high"
)

// AudioSettings describes how a recording session routes audio.
type AudioSettings struct {
	MicrophoneEnabled bool   `json:"microphoneEnabled"`
	MicrophoneDevice  string `json:"microphoneDevice"`
	SystemAudioEnabled bool  `json:"systemAudioEnabled"`
	SystemAudioDevice  string `json:"systemAudioDevice"`
	AudioQuality       string `json:"audioQuality"` // voice | standard | high
}

// SystemAudioActive reports whether system audio capture should actually be
// opened: the toggle must be on AND a real device must be selected.
func (a AudioSettings) SystemAudioActive() bool {
	return a.SystemAudioEnabled && a.SystemAudioDevice != "" && a.SystemAudioDevice != "none"
}

// Bitrate returns the AAC bitrate for the configured quality tier.
func (a AudioSettings) Bitrate() string {
	switch a.AudioQuality {
	case AudioQualityVoice:
		return "64k"
	case AudioQualityHigh:
		return "256k"
	default:
		return "128k"
	}
}

// DefaultAudioSettings matches the behaviour when the client sends no audio
// block: microphone on with the default device, system audio off.
func DefaultAudioSettings() AudioSettings {
	return AudioSettings{
		MicrophoneEnabled: true,
		MicrophoneDevice:  "default",
		AudioQuality:      AudioQualityStandard,
	}
}

// AudioDevice is one discoverable capture device.
type AudioDevice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // input | virtual
}

const (
	AudioDeviceInput   = "input"
	AudioDeviceVirtual = "virtual"
)

// MediaProbe is the result of probing a media file. It is recomputed per
// request and never persisted.
type MediaProbe struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	HasAudio bool    `json:"hasAudio"`
}

// ClipDescriptor describes one clip inside an export job. Video and audio
// trim windows are independent; the audio window defaults to the video
// window when absent. All times are seconds.
type ClipDescriptor struct {
	SourcePath string `json:"sourcePath"`

	TrimStart *float64 `json:"trimStart,omitempty"`
	TrimEnd   *float64 `json:"trimEnd,omitempty"`

	AudioTrimStart *float64 `json:"audioTrimStart,omitempty"`
	AudioTrimEnd   *float64 `json:"audioTrimEnd,omitempty"`

	MuteVideo bool `json:"muteVideo"`
	MuteAudio bool `json:"muteAudio"`

	// AudioLinked keeps the audio track locked to the video timeline. When
	// unlinked, AudioOffset shifts the audio by the given number of seconds.
	AudioLinked bool    `json:"audioLinked"`
	AudioOffset float64 `json:"audioOffset"`
}

// ExportJob is an ordered sequence of clips concatenated into one output.
type ExportJob struct {
	Clips      []ClipDescriptor `json:"clips"`
	OutputPath string           `json:"outputPath"`
}

// ExportProgress is one record of the ordered progress side-channel emitted
// while a multi-clip export runs.
type ExportProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Status  string `json:"status"`
}

// VideoMetadata is returned when a file is imported into the library.
type VideoMetadata struct {
	Path          string  `json:"path"`
	Filename      string  `json:"filename"`
	Duration      float64 `json:"duration"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	HasAudio      bool    `json:"hasAudio"`
	ContentType   string  `json:"contentType,omitempty"`
	ThumbnailPath string  `json:"thumbnailPath,omitempty"`
}
