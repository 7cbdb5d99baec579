// Package atlas extracts frames from a video and composes them into a single
// sprite-sheet PNG. Extraction runs through the shared process supervisor,
// either as one pass over the whole clip or as concurrent timeline segments
// that are merged back into strict timecode order before composition.
package atlas

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"vidatlas/internal/fileutil"
	"vidatlas/internal/logging"
	"vidatlas/internal/media/probe"
	"vidatlas/internal/process"
	"vidatlas/internal/services"
)

// Request describes one atlas job. FrameWidth/FrameHeight of zero keep the
// source frame size. OutputPath must already be collision-resolved by the
// caller.
type Request struct {
	Source      string
	FPS         float64
	FrameWidth  int
	FrameHeight int
	Layout      Layout
	OutputPath  string
}

// Options tunes the assembler. Zero values pick the defaults.
type Options struct {
	TempRoot         string
	ExtractTimeout   time.Duration
	MaxParallel      int
	SegmentSeconds   float64
	ParallelCutover  float64
	InactivityWindow time.Duration
	WatchInterval    time.Duration
}

const (
	defaultExtractTimeout   = 5 * time.Minute
	defaultSegmentSeconds   = 60.0
	defaultParallelCutover  = 120.0
	defaultInactivityWindow = 30 * time.Second
	defaultWatchInterval    = 500 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.ExtractTimeout <= 0 {
		o.ExtractTimeout = defaultExtractTimeout
	}
	if o.SegmentSeconds <= 0 {
		o.SegmentSeconds = defaultSegmentSeconds
	}
	if o.ParallelCutover <= 0 {
		o.ParallelCutover = defaultParallelCutover
	}
	if o.InactivityWindow <= 0 {
		o.InactivityWindow = defaultInactivityWindow
	}
	if o.WatchInterval <= 0 {
		o.WatchInterval = defaultWatchInterval
	}
	return o
}

// Assembler builds sprite sheets. It owns no subprocess state of its own;
// every extraction runs under the supervisor passed at construction.
type Assembler struct {
	supervisor *process.Supervisor
	opts       Options
	logger     *slog.Logger
}

// NewAssembler wires an assembler to a supervisor for the extraction binary.
func NewAssembler(supervisor *process.Supervisor, opts Options, logger *slog.Logger) *Assembler {
	return &Assembler{
		supervisor: supervisor,
		opts:       opts.withDefaults(),
		logger:     logging.NewComponentLogger(logger, "atlas"),
	}
}

// Build validates the request, extracts frames, and composes the sheet at
// req.OutputPath. Progress runs 0-100; 100 is reported only after the PNG is
// on disk.
func (a *Assembler) Build(ctx context.Context, req Request, info probe.MediaInfo, progress func(float64)) error {
	if err := Validate(req, info); err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp(a.opts.TempRoot, "atlas-*")
	if err != nil {
		return services.Wrap(services.ErrValidation, "atlas", "create temp dir",
			"check that the temp directory is writable", err)
	}
	defer fileutil.RemoveTreeBestEffort(tempDir)

	framesDir := filepath.Join(tempDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return services.Wrap(services.ErrValidation, "atlas", "create temp dir", "", err)
	}

	frames, err := a.extract(ctx, req, info, tempDir, framesDir, scaleProgress(progress, 0, 65))
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return services.Wrap(services.ErrExtraction, "atlas", "extract",
			"extraction finished without producing any frames; check that the source decodes", nil)
	}
	a.logger.Info("frames extracted",
		logging.Int("frames", len(frames)),
		logging.String("source", req.Source))

	if err := a.compose(req, frames, scaleProgress(progress, 65, 99)); err != nil {
		return err
	}
	if progress != nil {
		progress(100)
	}
	return nil
}

// Cancel forwards to the supervisor, stopping any in-flight extraction.
func (a *Assembler) Cancel() {
	a.supervisor.Cancel()
}

// scaleProgress maps a stage's 0-100 range into [lo, hi] of the overall job.
func scaleProgress(sink func(float64), lo, hi float64) func(float64) {
	if sink == nil {
		return nil
	}
	return func(percent float64) {
		sink(lo + (hi-lo)*percent/100)
	}
}

// isCancellation reports whether an extraction error came from the user, in
// which case the parallel path must not fall back to sequential.
func isCancellation(err error) bool {
	return errors.Is(err, services.ErrCancelled)
}
