package engine

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidatlas/internal/fileutil"
	"vidatlas/internal/history"
	"vidatlas/internal/logging"
	"vidatlas/internal/plan"
	"vidatlas/internal/process"
	"vidatlas/internal/services"
)

// ConvertRequest describes one transcode. An empty OutputDir falls back to
// the configured output directory; empty Resolution/FPS keep the source's.
type ConvertRequest struct {
	Source     string
	Format     plan.Format
	Quality    plan.Quality
	Resolution string
	FPS        string
	KeepAudio  bool
	OGVMode    plan.OGVMode
	OutputDir  string
}

// Convert transcodes one file and returns the path that was written. The
// output name never collides with an existing file; a numeric suffix is
// appended instead of overwriting.
func (e *Engine) Convert(ctx context.Context, req ConvertRequest, progress func(float64)) (string, error) {
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return "", services.Wrap(services.ErrValidation, "convert", "validate request", "a source file is required", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrCancelled, "convert", "queue", "", err)
	}

	info := e.prober.Probe(ctx, source)
	if !info.Valid {
		return "", services.Wrap(services.ErrValidation, "convert", "probe "+filepath.Base(source),
			"the file does not probe as video; check that it decodes", nil)
	}

	built := plan.Build(plan.Request{
		Source:     source,
		Format:     req.Format,
		Quality:    req.Quality,
		Resolution: req.Resolution,
		FPS:        req.FPS,
		KeepAudio:  req.KeepAudio,
		OGVMode:    req.OGVMode,
	}, info)

	outputPath, err := e.resolveOutput(req.OutputDir, source, built.OutputExt)
	if err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	e.beginHistory(ctx, history.Job{
		ID:        jobID,
		Kind:      "convert",
		Source:    source,
		Output:    outputPath,
		Format:    req.Format.String(),
		StartedAt: time.Now(),
	})

	e.logger.Info("conversion started",
		logging.String("job_id", jobID),
		logging.String("source", source),
		logging.String("format", req.Format.String()),
		logging.String("quality", req.Quality.String()),
		logging.Float64("duration_s", info.DurationSeconds))

	sampler := logging.NewProgressSampler(10)
	sink := monotonic(progress)
	args := append([]string{"-hide_banner", "-i", source}, built.Args...)
	args = append(args, outputPath)

	runErr := e.supervisor.Run(ctx, process.Spec{
		Stage:           "convert",
		Args:            args,
		ExpectedSeconds: info.DurationSeconds,
		OutputPath:      outputPath,
		Timeout:         e.convertTimeout(),
		Progress: func(percent float64) {
			if sink != nil {
				sink(percent)
			}
			if sampler.ShouldLog(percent, "convert") {
				e.logger.Info("conversion progress",
					logging.String("job_id", jobID),
					logging.Float64("percent", percent))
			}
		},
	})

	e.finishHistory(ctx, jobID, runErr, outputPath)
	if runErr != nil {
		return "", runErr
	}
	e.logger.Info("conversion finished",
		logging.String("job_id", jobID),
		logging.String("output", outputPath))
	return outputPath, nil
}

// BatchResult records one file's outcome within a batch.
type BatchResult struct {
	Source string
	Output string
	Err    error
}

// ConvertBatch processes sources strictly in input order, scaling each
// file's 0-100 progress into its slice of the overall range. A failed file
// does not stop the batch; cancellation aborts everything that remains.
func (e *Engine) ConvertBatch(ctx context.Context, sources []string, req ConvertRequest, progress func(float64)) ([]BatchResult, error) {
	if len(sources) == 0 {
		return nil, services.Wrap(services.ErrValidation, "convert", "validate batch", "no input files given", nil)
	}

	sink := monotonic(progress)
	results := make([]BatchResult, 0, len(sources))
	total := float64(len(sources))

	for i, source := range sources {
		offset := float64(i) * 100 / total
		fileReq := req
		fileReq.Source = source

		output, err := e.Convert(ctx, fileReq, func(percent float64) {
			if sink != nil {
				sink(offset + percent/total)
			}
		})
		results = append(results, BatchResult{Source: source, Output: output, Err: err})

		if err != nil && !services.IsRetryable(err) {
			e.logger.Warn("batch aborted by cancellation",
				logging.Int("completed", i),
				logging.Int("remaining", len(sources)-i-1))
			return results, err
		}
		if err != nil {
			e.logger.Warn("batch item failed, continuing",
				logging.String("source", source),
				logging.Error(err))
		}
	}
	if sink != nil {
		sink(100)
	}
	return results, nil
}

// resolveOutput derives a non-colliding output path from the source stem.
func (e *Engine) resolveOutput(outputDir, source, ext string) (string, error) {
	dir := strings.TrimSpace(outputDir)
	if dir == "" {
		dir = e.cfg.Paths.OutputDir
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	unique, err := fileutil.UniquePath(filepath.Join(dir, stem+ext))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "convert", "resolve output path", "", err)
	}
	return unique, nil
}

func (e *Engine) beginHistory(ctx context.Context, job history.Job) {
	if err := e.store.Begin(ctx, job); err != nil {
		e.logger.Warn("history record failed", logging.Error(err))
	}
}

func (e *Engine) finishHistory(ctx context.Context, jobID string, jobErr error, output string) {
	detail := ""
	if jobErr != nil {
		detail = services.Summary(jobErr)
		output = ""
	}
	if err := e.store.Finish(ctx, jobID, classify(jobErr), output, detail); err != nil {
		e.logger.Warn("history update failed", logging.Error(err))
	}
}
