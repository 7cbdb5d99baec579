// Package engine is the façade the CLI drives: it composes the prober, the
// argument builder, the process supervisor, and the atlas assembler into
// convert and generate-atlas operations with a single 0-100 progress stream
// and one cancellation entry point.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"vidatlas/internal/atlas"
	"vidatlas/internal/config"
	"vidatlas/internal/deps"
	"vidatlas/internal/history"
	"vidatlas/internal/logging"
	"vidatlas/internal/media/probe"
	"vidatlas/internal/preflight"
	"vidatlas/internal/process"
	"vidatlas/internal/services"
)

// Engine owns one supervisor for the encoder binary; conversions and atlas
// extractions share its process slots and its cancel switch.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	prober     *probe.Prober
	supervisor *process.Supervisor
	assembler  *atlas.Assembler
	store      *history.Store
	lock       *flock.Flock
}

// New builds an engine from config. It takes an exclusive work lock so two
// instances cannot write into the same output tree at once, and refuses to
// start when a preflight check fails.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "init", "configuration is required", nil)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "init", "check the configured directories", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "vidatlas.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "acquire work lock", "", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "acquire work lock",
			"another vidatlas instance is already running", nil)
	}

	// Fail a doomed run in milliseconds instead of minutes into an encode.
	for _, check := range preflight.RunAll(cfg) {
		if !check.Passed {
			_ = lock.Unlock()
			return nil, services.Wrap(services.ErrConfiguration, "engine", "preflight "+check.Name, check.Detail, nil)
		}
	}

	store, err := history.Open(cfg.Paths.LogDir)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open history: %w", err)
	}

	ffmpeg := deps.ResolveTool(cfg.Tools.FFmpeg, "ffmpeg")
	ffprobe := deps.ResolveTool(cfg.Tools.FFprobe, "ffprobe")
	supervisor := process.New(ffmpeg, cfg.Tools.MaxParallel, logger)

	return &Engine{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "engine"),
		prober:     probe.New(ffprobe, logger),
		supervisor: supervisor,
		assembler: atlas.NewAssembler(supervisor, atlas.Options{
			TempRoot:       cfg.Paths.TempDir,
			ExtractTimeout: time.Duration(cfg.Tools.ExtractTimeout) * time.Second,
			MaxParallel:    cfg.Tools.MaxParallel,
		}, logger),
		store: store,
		lock:  lock,
	}, nil
}

// Probe inspects a media file. Unreadable files come back with Valid=false,
// never as an error.
func (e *Engine) Probe(ctx context.Context, path string) probe.MediaInfo {
	return e.prober.Probe(ctx, path)
}

// Validate reports whether the file probes as usable video.
func (e *Engine) Validate(ctx context.Context, path string) bool {
	return e.prober.Validate(ctx, path)
}

// History lists the most recent recorded jobs.
func (e *Engine) History(ctx context.Context, limit int) ([]history.Job, error) {
	return e.store.List(ctx, limit)
}

// CancelCurrent stops whatever is running. Calling it with nothing active is
// a no-op.
func (e *Engine) CancelCurrent() {
	e.supervisor.Cancel()
}

// Close cancels in-flight work and releases the history store and work lock.
func (e *Engine) Close() error {
	e.supervisor.Close()
	err := e.store.Close()
	if unlockErr := e.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

func (e *Engine) convertTimeout() time.Duration {
	if e.cfg.Tools.ConvertTimeout <= 0 {
		return 0
	}
	return time.Duration(e.cfg.Tools.ConvertTimeout) * time.Second
}

// monotonic guards a progress sink against regressions when stages hand off.
func monotonic(sink func(float64)) func(float64) {
	if sink == nil {
		return nil
	}
	last := -1.0
	return func(percent float64) {
		if percent <= last {
			return
		}
		last = percent
		sink(percent)
	}
}

// classify maps a job error to its terminal history status.
func classify(err error) history.Status {
	switch {
	case err == nil:
		return history.StatusCompleted
	case services.IsCancellation(err):
		return history.StatusCancelled
	case services.IsTimeout(err):
		return history.StatusTimedOut
	default:
		return history.StatusFailed
	}
}
