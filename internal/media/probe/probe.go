package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"vidatlas/internal/logging"
)

// Durations above suspectDurationSeconds trigger a direct single-value
// re-query; above extremeDurationSeconds the value is logged but accepted.
const (
	suspectDurationSeconds = 3600
	extremeDurationSeconds = 86400
)

var commandContext = exec.CommandContext

// MediaInfo describes a probed file. It is created fresh per probe call and
// immutable thereafter.
type MediaInfo struct {
	Valid           bool
	DurationSeconds float64
	Width           uint32
	Height          uint32
	FrameRate       float64
	VideoCodec      string
	AudioCodec      string
	BitRate         uint64
	HasAudio        bool
}

// ResolutionLabel formats the probed dimensions as "WxH".
func (m MediaInfo) ResolutionLabel() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

type result struct {
	Streams []stream `json:"streams"`
	Format  format   `json:"format"`
}

type stream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

type format struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// Prober invokes ffprobe.
type Prober struct {
	binary string
	logger *slog.Logger
}

// New constructs a Prober using the given ffprobe binary.
func New(binary string, logger *slog.Logger) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, logger: logging.NewComponentLogger(logger, "probe")}
}

// Probe inspects path and returns its MediaInfo. Malformed files yield
// Valid=false; Probe never returns an error.
func (p *Prober) Probe(ctx context.Context, path string) MediaInfo {
	parsed, err := p.inspect(ctx, path)
	if err != nil {
		p.logger.Debug("probe failed", logging.String("path", path), logging.Error(err))
		return MediaInfo{}
	}

	info := buildInfo(parsed)
	if info.DurationSeconds > suspectDurationSeconds {
		if direct, ok := p.directDuration(ctx, path); ok {
			info.DurationSeconds = direct
		}
	}
	if info.DurationSeconds > extremeDurationSeconds {
		p.logger.Warn("implausible media duration",
			logging.String("path", path),
			logging.Float64("duration_seconds", info.DurationSeconds),
		)
	}
	info.Valid = info.DurationSeconds > 0 && info.Width > 0 && info.Height > 0
	return info
}

// Validate reports whether path probes as usable media.
func (p *Prober) Validate(ctx context.Context, path string) bool {
	return p.Probe(ctx, path).Valid
}

func (p *Prober) inspect(ctx context.Context, path string) (result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return result{}, fmt.Errorf("probe: empty path")
	}
	cmd := commandContext(ctx, p.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		return result{}, fmt.Errorf("probe %s: %w", path, err)
	}
	var parsed result
	if err := json.Unmarshal(output, &parsed); err != nil {
		return result{}, fmt.Errorf("probe parse: %w", err)
	}
	return parsed, nil
}

// directDuration asks ffprobe for the duration alone. Used when the parsed
// container value is implausibly large, which usually means a corrupt header.
func (p *Prober) directDuration(ctx context.Context, path string) (float64, bool) {
	cmd := commandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", path)
	output, err := cmd.Output()
	if err != nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func buildInfo(parsed result) MediaInfo {
	info := MediaInfo{
		DurationSeconds: parsePositiveFloat(parsed.Format.Duration),
		BitRate:         parseUint(parsed.Format.BitRate),
	}

	for _, s := range parsed.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			// First video stream wins.
			if info.Width == 0 && info.Height == 0 && s.Width > 0 && s.Height > 0 {
				info.Width = uint32(s.Width)
				info.Height = uint32(s.Height)
				info.VideoCodec = s.CodecName
				info.FrameRate = parseRational(s.RFrameRate)
			}
			if info.DurationSeconds <= 0 {
				info.DurationSeconds = parsePositiveFloat(s.Duration)
			}
		case "audio":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		}
	}
	return info
}

// parseRational parses ffprobe's "num/den" frame-rate notation. A zero
// denominator means the rate is unknown.
func parseRational(value string) float64 {
	parts := strings.SplitN(strings.TrimSpace(value), "/", 2)
	if len(parts) != 2 {
		return parsePositiveFloat(value)
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

func parsePositiveFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func parseUint(value string) uint64 {
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
