// Package testsupport holds helpers shared by tests: temp-dir configs and
// stub encoder binaries.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidatlas/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.TempDir = filepath.Join(base, "temp")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Tools.MaxParallel = 1

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfg}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMaxParallel overrides the subprocess concurrency bound.
func WithMaxParallel(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.MaxParallel = n
	}
}

// WithStubbedTools writes stub ffmpeg/ffprobe executables from the given
// script bodies and points the config's tool paths at them. An empty script
// keeps a plain "exit 0" stub.
func WithStubbedTools(ffmpegScript, ffprobeScript string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		b.cfg.Tools.FFmpeg = writeStub(b.t, binDir, "ffmpeg", ffmpegScript)
		b.cfg.Tools.FFprobe = writeStub(b.t, binDir, "ffprobe", ffprobeScript)
	}
}

func writeStub(t testing.TB, dir, name, script string) string {
	t.Helper()
	if script == "" {
		script = "#!/bin/sh\nexit 0\n"
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
