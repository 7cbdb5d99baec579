package plan

import (
	"fmt"
	"strings"
)

// Format identifies a target output container/codec pairing.
type Format int

const (
	// FormatOGV is Theora video in an Ogg container, Godot's preferred
	// streamed-video format.
	FormatOGV Format = iota
	// FormatMP4 is H.264 video in an MP4 container.
	FormatMP4
	// FormatWebM is VP9 video in a WebM container.
	FormatWebM
	// FormatGIF is a palette-based animated GIF. It never carries audio.
	FormatGIF
)

// ParseFormat maps a configuration string to a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ogv", "theora":
		return FormatOGV, nil
	case "mp4", "h264":
		return FormatMP4, nil
	case "webm", "vp9":
		return FormatWebM, nil
	case "gif":
		return FormatGIF, nil
	default:
		return 0, fmt.Errorf("unknown format %q", value)
	}
}

func (f Format) String() string {
	switch f {
	case FormatOGV:
		return "ogv"
	case FormatMP4:
		return "mp4"
	case FormatWebM:
		return "webm"
	case FormatGIF:
		return "gif"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Extension returns the output file extension including the dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// Description names the codec pairing for user-facing listings.
func (f Format) Description() string {
	switch f {
	case FormatOGV:
		return "theora video in an ogg container"
	case FormatMP4:
		return "h.264 video in an mp4 container"
	case FormatWebM:
		return "vp9 video in a webm container"
	case FormatGIF:
		return "palette-based animated gif"
	default:
		return "unknown"
	}
}

// Formats lists every supported output format.
func Formats() []Format {
	return []Format{FormatOGV, FormatMP4, FormatWebM, FormatGIF}
}

// Quality is a named bundle of encoder speed/fidelity trade-off flags.
type Quality int

const (
	QualityUltra Quality = iota
	QualityHigh
	QualityBalanced
	QualityOptimized
	QualityTiny
)

// ParseQuality maps a configuration string to a Quality preset.
func ParseQuality(value string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ultra":
		return QualityUltra, nil
	case "high":
		return QualityHigh, nil
	case "balanced":
		return QualityBalanced, nil
	case "optimized":
		return QualityOptimized, nil
	case "tiny":
		return QualityTiny, nil
	default:
		return 0, fmt.Errorf("unknown quality preset %q", value)
	}
}

func (q Quality) String() string {
	switch q {
	case QualityUltra:
		return "ultra"
	case QualityHigh:
		return "high"
	case QualityBalanced:
		return "balanced"
	case QualityOptimized:
		return "optimized"
	case QualityTiny:
		return "tiny"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// Qualities lists every preset from highest to lowest fidelity.
func Qualities() []Quality {
	return []Quality{QualityUltra, QualityHigh, QualityBalanced, QualityOptimized, QualityTiny}
}

// OGVMode tunes keyframe spacing, threading, and bitrate control for Theora
// output. Modes are ignored for every other format.
type OGVMode int

const (
	// OGVModeNone leaves the quality preset's variable-bitrate flags alone.
	OGVModeNone OGVMode = iota
	// OGVModeStreaming pins a constant bitrate with short keyframe spacing
	// for seek-heavy playback. Constant-bitrate control replaces the
	// preset's quality-value flag entirely.
	OGVModeStreaming
	// OGVModeBalanced widens keyframe spacing and threading while keeping
	// variable-bitrate quality control.
	OGVModeBalanced
	// OGVModeArchive maximizes compression with long keyframe intervals.
	OGVModeArchive
)

// ParseOGVMode maps a configuration string to an OGVMode.
func ParseOGVMode(value string) (OGVMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return OGVModeNone, nil
	case "streaming":
		return OGVModeStreaming, nil
	case "balanced":
		return OGVModeBalanced, nil
	case "archive":
		return OGVModeArchive, nil
	default:
		return 0, fmt.Errorf("unknown ogv mode %q", value)
	}
}

func (m OGVMode) String() string {
	switch m {
	case OGVModeNone:
		return "none"
	case OGVModeStreaming:
		return "streaming"
	case OGVModeBalanced:
		return "balanced"
	case OGVModeArchive:
		return "archive"
	default:
		return fmt.Sprintf("ogvmode(%d)", int(m))
	}
}
