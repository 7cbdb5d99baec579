package engine

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidatlas/internal/atlas"
	"vidatlas/internal/fileutil"
	"vidatlas/internal/history"
	"vidatlas/internal/logging"
	"vidatlas/internal/services"
)

// AtlasRequest describes one sprite-sheet job. Zero frame dimensions keep
// the source frame size.
type AtlasRequest struct {
	Source      string
	FPS         float64
	FrameWidth  int
	FrameHeight int
	Layout      atlas.Layout
	OutputDir   string
}

// GenerateAtlas extracts frames from the source and composes them into a
// PNG sheet, returning the path that was written.
func (e *Engine) GenerateAtlas(ctx context.Context, req AtlasRequest, progress func(float64)) (string, error) {
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return "", services.Wrap(services.ErrValidation, "atlas", "validate request", "a source file is required", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrCancelled, "atlas", "queue", "", err)
	}

	info := e.prober.Probe(ctx, source)

	dir := strings.TrimSpace(req.OutputDir)
	if dir == "" {
		dir = e.cfg.Paths.OutputDir
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	outputPath, err := fileutil.UniquePath(filepath.Join(dir, stem+"_atlas.png"))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "atlas", "resolve output path", "", err)
	}

	jobID := uuid.NewString()
	e.beginHistory(ctx, history.Job{
		ID:        jobID,
		Kind:      "atlas",
		Source:    source,
		Output:    outputPath,
		Format:    "png",
		StartedAt: time.Now(),
	})

	e.logger.Info("atlas generation started",
		logging.String("job_id", jobID),
		logging.String("source", source),
		logging.Float64("fps", req.FPS),
		logging.String("layout", req.Layout.String()))

	sampler := logging.NewProgressSampler(10)
	sink := monotonic(progress)
	buildErr := e.assembler.Build(ctx, atlas.Request{
		Source:      source,
		FPS:         req.FPS,
		FrameWidth:  req.FrameWidth,
		FrameHeight: req.FrameHeight,
		Layout:      req.Layout,
		OutputPath:  outputPath,
	}, info, func(percent float64) {
		if sink != nil {
			sink(percent)
		}
		if sampler.ShouldLog(percent, "atlas") {
			e.logger.Info("atlas progress",
				logging.String("job_id", jobID),
				logging.Float64("percent", percent))
		}
	})

	e.finishHistory(ctx, jobID, buildErr, outputPath)
	if buildErr != nil {
		return "", buildErr
	}
	e.logger.Info("atlas generation finished",
		logging.String("job_id", jobID),
		logging.String("output", outputPath))
	return outputPath, nil
}
