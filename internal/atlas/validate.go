package atlas

import (
	"fmt"
	"math"

	"vidatlas/internal/media/probe"
	"vidatlas/internal/services"
)

// Resource budgets checked before any extraction subprocess is spawned.
// Every rejection names a concrete remedy.
const (
	maxFrameBudget     = 1024
	memoryBudget       = 2 << 30 // bytes of decoded RGBA frames
	maxSourceDimension = 8192
	minSourceDimension = 16
	minAspectRatio     = 0.125
	maxAspectRatio     = 8.0
	maxDurationSeconds = 600.0
	minExtractionFPS   = 1.0
	maxExtractionFPS   = 30.0
)

// Validate checks an atlas request against the resource budgets using only
// probed metadata. It runs before any subprocess is spawned.
func Validate(req Request, info probe.MediaInfo) error {
	reject := func(op, remedy string) error {
		return services.Wrap(services.ErrValidation, "atlas", op, remedy, nil)
	}

	if !info.Valid {
		return reject("validate source", "the file could not be probed as video; check that it decodes")
	}
	if req.FPS < minExtractionFPS || req.FPS > maxExtractionFPS {
		return reject("validate fps",
			fmt.Sprintf("extraction fps %.2f is outside [%.0f, %.0f]; pick a rate in that band", req.FPS, minExtractionFPS, maxExtractionFPS))
	}
	if info.DurationSeconds > maxDurationSeconds {
		return reject("validate duration",
			fmt.Sprintf("source runs %.1fs, over the %.0fs ceiling; trim the clip first", info.DurationSeconds, maxDurationSeconds))
	}
	if info.Width > maxSourceDimension || info.Height > maxSourceDimension {
		return reject("validate resolution",
			fmt.Sprintf("source is %dx%d, over the %dpx limit; downscale the source", info.Width, info.Height, maxSourceDimension))
	}
	if info.Width < minSourceDimension || info.Height < minSourceDimension {
		return reject("validate resolution",
			fmt.Sprintf("source is %dx%d, under the %dpx minimum", info.Width, info.Height, minSourceDimension))
	}
	aspect := float64(info.Width) / float64(info.Height)
	if aspect < minAspectRatio || aspect > maxAspectRatio {
		return reject("validate aspect ratio",
			fmt.Sprintf("aspect ratio %.3f falls outside [%.3f, %.1f]; crop the source to a saner shape", aspect, minAspectRatio, maxAspectRatio))
	}

	frames := estimateFrames(info.DurationSeconds, req.FPS)
	if frames > maxFrameBudget {
		return reject("validate frame count",
			fmt.Sprintf("%d frames estimated, over the %d budget; lower the fps or shorten the clip", frames, maxFrameBudget))
	}

	width, height := req.frameDimensions(info)
	memory := uint64(width) * uint64(height) * 4 * uint64(frames)
	if memory > memoryBudget {
		return reject("validate memory",
			fmt.Sprintf("composition needs ~%d MiB, over the %d MiB budget; lower the fps or frame size", memory>>20, uint64(memoryBudget)>>20))
	}
	return nil
}

func estimateFrames(durationSeconds, fps float64) int {
	return int(math.Ceil(durationSeconds * fps))
}

// frameDimensions resolves the extracted frame size: the requested size when
// set, otherwise the source size.
func (r Request) frameDimensions(info probe.MediaInfo) (width, height int) {
	if r.FrameWidth > 0 && r.FrameHeight > 0 {
		return r.FrameWidth, r.FrameHeight
	}
	return int(info.Width), int(info.Height)
}
