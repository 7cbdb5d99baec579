// Package plan builds encoder argument lists for conversion jobs. Building a
// plan is pure: the same request and probe always produce the same argument
// slice, and nothing here touches the filesystem or the encoder.
package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"vidatlas/internal/media/probe"
)

// MaxFPS is the highest accepted target frame rate.
const MaxFPS = 120

var resolutionPattern = regexp.MustCompile(`^(\d{1,5})x(\d{1,5})$`)

// Request describes one transcode job. Resolution and FPS are empty strings
// for "keep original". Mode fields irrelevant to the chosen format are
// ignored, not validated.
type Request struct {
	Source     string
	Format     Format
	Quality    Quality
	Resolution string
	FPS        string
	KeepAudio  bool
	OGVMode    OGVMode
}

// Plan is the resolved argument set for one job. It is derived fresh per job
// and never mutated after construction. Args holds everything between the
// encoder's input and output path arguments.
type Plan struct {
	Args        []string
	FilterChain string
	OutputExt   string
}

// Build resolves a request against probed media info. Deterministic, no I/O.
func Build(req Request, info probe.MediaInfo) Plan {
	chain := filterChain(req)

	var args []string
	if req.Format == FormatGIF {
		args = append(args, "-filter_complex", gifFilterGraph(chain, req.Quality))
		args = append(args, "-loop", "0")
	} else {
		if chain != "" {
			args = append(args, "-vf", chain)
		}
		args = append(args, videoCodecArgs(req.Format, req.Quality, req.OGVMode)...)
	}
	args = append(args, audioArgs(req.Format, req.KeepAudio, info.HasAudio)...)

	return Plan{
		Args:        args,
		FilterChain: chain,
		OutputExt:   req.Format.Extension(),
	}
}

// filterChain composes the optional scale and fps filters in scale-then-fps
// order. H.264 output appends an even-dimension rounding step because the
// codec rejects odd pixel dimensions.
func filterChain(req Request) string {
	filters := make([]string, 0, 3)

	if width, height, ok := ParseResolution(req.Resolution); ok {
		filters = append(filters, fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height))
		if req.Format == FormatMP4 {
			filters = append(filters, "scale=trunc(iw/2)*2:trunc(ih/2)*2")
		}
	}
	if fps, ok := ParseFPS(req.FPS); ok {
		filters = append(filters, fmt.Sprintf("fps=%s", trimFloat(fps)))
	}
	return strings.Join(filters, ",")
}

// ParseResolution parses a "WxH" string. Empty or malformed values report
// ok=false, which keeps the original resolution.
func ParseResolution(value string) (width, height uint32, ok bool) {
	match := resolutionPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(value)))
	if match == nil {
		return 0, 0, false
	}
	w, err := strconv.ParseUint(match[1], 10, 32)
	if err != nil || w == 0 {
		return 0, 0, false
	}
	h, err := strconv.ParseUint(match[2], 10, 32)
	if err != nil || h == 0 {
		return 0, 0, false
	}
	return uint32(w), uint32(h), true
}

// ParseFPS parses a target frame rate. Empty or invalid values report
// ok=false, which keeps the original rate rather than failing the job.
func ParseFPS(value string) (float64, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	fps, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || fps <= 0 || fps > MaxFPS {
		return 0, false
	}
	return fps, true
}

func trimFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
