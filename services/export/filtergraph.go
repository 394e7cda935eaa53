package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"clipforge/models"
)

// Filler frame geometry when a clip's video channel is muted.
const (
	fillerSize = "1920x1080"
	fillerRate = "30"
)

// RoundMS rounds a time value to millisecond precision. Downstream
// duration-dependent filters (silence and black-frame generation) reject
// literals with excessive decimal digits, so every time value is bounded
// here before use.
func RoundMS(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// formatSeconds renders a rounded time value with at most three decimals.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(RoundMS(v), 'f', 3, 64)
}

// window is a resolved, millisecond-rounded trim interval.
type window struct {
	start, end float64
	set        bool
}

func (w window) duration() float64 {
	return RoundMS(w.end - w.start)
}

// resolvedClip carries everything per-clip command synthesis needs.
type resolvedClip struct {
	clip     models.ClipDescriptor
	video    window
	audio    window
	hasAudio bool
	duration float64

	// independentAudio is true whenever the resolved audio window differs
	// from the resolved video window.
	independentAudio bool
}

func resolveWindows(clip models.ClipDescriptor) (video, audio window, independent bool) {
	if clip.TrimStart != nil && clip.TrimEnd != nil {
		video = window{start: RoundMS(*clip.TrimStart), end: RoundMS(*clip.TrimEnd), set: true}
	}
	audio = video
	if clip.AudioTrimStart != nil && clip.AudioTrimEnd != nil {
		audio = window{start: RoundMS(*clip.AudioTrimStart), end: RoundMS(*clip.AudioTrimEnd), set: true}
	}
	independent = audio != video
	return video, audio, independent
}

// needsFilterGraph decides whether the clip requires filter-graph synthesis
// or whether a plain mapping with an input trim suffices.
func needsFilterGraph(rc resolvedClip) bool {
	if rc.clip.MuteVideo || rc.clip.MuteAudio {
		return true
	}
	if !rc.hasAudio {
		return true
	}
	if rc.independentAudio {
		return true
	}
	if !rc.clip.AudioLinked && rc.clip.AudioOffset != 0 {
		return true
	}
	return false
}

// graphChain is one named branch of a filter graph: optional input labels,
// a filter chain, and a named output.
type graphChain struct {
	inputs  []string
	filters []string
	output  string
}

func (c graphChain) String() string {
	var b strings.Builder
	for _, in := range c.inputs {
		b.WriteString("[" + in + "]")
	}
	b.WriteString(strings.Join(c.filters, ","))
	b.WriteString("[" + c.output + "]")
	return b.String()
}

// filterGraph is a structured description of per-stream transformations with
// named outputs. It is serialized to ffmpeg's textual filter syntax only at
// the invocation boundary, keeping rounding and mapping invariants in one
// place.
type filterGraph struct {
	chains []graphChain
}

func (g *filterGraph) add(c graphChain) { g.chains = append(g.chains, c) }

func (g *filterGraph) String() string {
	parts := make([]string, 0, len(g.chains))
	for _, c := range g.chains {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ";")
}

// outputs returns the named streams to map, in video-then-audio order.
func (g *filterGraph) outputs() []string {
	outs := make([]string, 0, len(g.chains))
	for _, c := range g.chains {
		outs = append(outs, c.output)
	}
	return outs
}

// buildClipGraph synthesizes the video and audio branches for one clip. Both
// branches always produce exactly the clip's duration, even when the source
// lacks one of the tracks, so concatenated clips can never drift out of
// sync.
func buildClipGraph(rc resolvedClip) *filterGraph {
	g := &filterGraph{}
	g.add(videoBranch(rc))
	g.add(audioBranch(rc))
	return g
}

func videoBranch(rc resolvedClip) graphChain {
	if rc.clip.MuteVideo {
		// Solid-color filler of the clip's duration.
		return graphChain{
			filters: []string{fmt.Sprintf("color=black:size=%s:rate=%s:duration=%s",
				fillerSize, fillerRate, formatSeconds(rc.duration))},
			output: "vout",
		}
	}
	if rc.video.set {
		return graphChain{
			inputs: []string{"0:v"},
			filters: []string{
				fmt.Sprintf("trim=start=%s:end=%s", formatSeconds(rc.video.start), formatSeconds(rc.video.end)),
				"setpts=PTS-STARTPTS",
			},
			output: "vout",
		}
	}
	return graphChain{inputs: []string{"0:v"}, filters: []string{"null"}, output: "vout"}
}

func audioBranch(rc resolvedClip) graphChain {
	if !rc.hasAudio || rc.clip.MuteAudio {
		// Silence of exactly the clip's duration.
		return graphChain{
			filters: []string{fmt.Sprintf("anullsrc=r=48000:cl=stereo:d=%s", formatSeconds(rc.duration))},
			output:  "aout",
		}
	}

	if !rc.clip.AudioLinked {
		return unlinkedAudioChain(rc)
	}

	if rc.independentAudio && rc.audio.set {
		return graphChain{
			inputs: []string{"0:a"},
			filters: []string{
				fmt.Sprintf("atrim=start=%s:end=%s", formatSeconds(rc.audio.start), formatSeconds(rc.audio.end)),
				"asetpts=PTS-STARTPTS",
			},
			output: "aout",
		}
	}

	if rc.audio.set {
		return graphChain{
			inputs: []string{"0:a"},
			filters: []string{
				fmt.Sprintf("atrim=start=%s:end=%s", formatSeconds(rc.audio.start), formatSeconds(rc.audio.end)),
				"asetpts=PTS-STARTPTS",
			},
			output: "aout",
		}
	}

	return graphChain{inputs: []string{"0:a"}, filters: []string{"anull"}, output: "aout"}
}

// unlinkedAudioChain trims the audio window and applies the clip's offset: a
// delay when positive, a longer leading trim when negative, nothing at zero.
func unlinkedAudioChain(rc resolvedClip) graphChain {
	start := rc.audio.start
	end := rc.audio.end
	offset := RoundMS(rc.clip.AudioOffset)

	if offset < 0 {
		start = RoundMS(start - offset) // offset is negative: trim more from the head
	}

	filters := []string{}
	if rc.audio.set {
		filters = append(filters,
			fmt.Sprintf("atrim=start=%s:end=%s", formatSeconds(start), formatSeconds(end)),
			"asetpts=PTS-STARTPTS",
		)
	} else if offset < 0 {
		filters = append(filters,
			fmt.Sprintf("atrim=start=%s", formatSeconds(-offset)),
			"asetpts=PTS-STARTPTS",
		)
	}

	if offset > 0 {
		delayMS := int(math.Round(offset * 1000))
		filters = append(filters, fmt.Sprintf("adelay=%d|%d", delayMS, delayMS))
	}

	if len(filters) == 0 {
		filters = []string{"anull"}
	}

	return graphChain{inputs: []string{"0:a"}, filters: filters, output: "aout"}
}
