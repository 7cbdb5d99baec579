package atlas

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"vidatlas/internal/logging"
	"vidatlas/internal/media/probe"
	"vidatlas/internal/process"
	"vidatlas/internal/services"
)

func writeFramePNG(t *testing.T, path string, fill color.NRGBA) {
	t.Helper()
	img := imaging.New(2, 2, fill)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save frame: %v", err)
	}
}

func TestComposeGrid(t *testing.T) {
	dir := t.TempDir()
	colors := []color.NRGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
	frames := make([]string, len(colors))
	for i, fill := range colors {
		frames[i] = filepath.Join(dir, fmt.Sprintf("frame_%06d.png", i+1))
		writeFramePNG(t, frames[i], fill)
	}

	out := filepath.Join(dir, "sheet.png")
	assembler := NewAssembler(nil, Options{}, logging.NewNop())
	if err := assembler.compose(Request{Layout: LayoutGrid, OutputPath: out}, frames, nil); err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	sheet, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open sheet: %v", err)
	}
	if sheet.Bounds().Dx() != 4 || sheet.Bounds().Dy() != 4 {
		t.Fatalf("sheet is %v, want 4x4", sheet.Bounds())
	}
	// Row-major: frame 0 top-left, 1 top-right, 2 bottom-left, 3 bottom-right.
	checks := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, colors[0]},
		{2, 0, colors[1]},
		{0, 2, colors[2]},
		{2, 2, colors[3]},
	}
	for _, check := range checks {
		got := color.NRGBAModel.Convert(sheet.At(check.x, check.y)).(color.NRGBA)
		if got != check.want {
			t.Fatalf("pixel (%d,%d) = %+v, want %+v", check.x, check.y, got, check.want)
		}
	}
}

func TestComposeVerticalColumnMajor(t *testing.T) {
	dir := t.TempDir()
	var frames []string
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("frame_%06d.png", i+1))
		writeFramePNG(t, path, color.NRGBA{R: uint8(50 * (i + 1)), A: 255})
		frames = append(frames, path)
	}

	out := filepath.Join(dir, "column.png")
	assembler := NewAssembler(nil, Options{}, logging.NewNop())
	if err := assembler.compose(Request{Layout: LayoutVertical, OutputPath: out}, frames, nil); err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	sheet, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open sheet: %v", err)
	}
	if sheet.Bounds().Dx() != 2 || sheet.Bounds().Dy() != 6 {
		t.Fatalf("sheet is %v, want 2x6", sheet.Bounds())
	}
	got := color.NRGBAModel.Convert(sheet.At(0, 2)).(color.NRGBA)
	if got.R != 100 {
		t.Fatalf("second frame not in second row: %+v", got)
	}
}

func stubExtractor(t *testing.T, fixture string, frameCount int) string {
	t.Helper()
	script := fmt.Sprintf(`#!/bin/sh
for arg in "$@"; do pattern="$arg"; done
dir=$(dirname "$pattern")
i=1
while [ $i -le %d ]; do
  cp %q "$dir/frame_00000$i.png"
  i=$((i+1))
done
`, frameCount, fixture)
	binary := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return binary
}

func TestBuildProducesSheet(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.png")
	writeFramePNG(t, fixture, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	sup := process.New(stubExtractor(t, fixture, 4), 1, logging.NewNop())
	assembler := NewAssembler(sup, Options{
		TempRoot:         dir,
		ExtractTimeout:   time.Minute,
		InactivityWindow: 10 * time.Second,
	}, logging.NewNop())

	out := filepath.Join(dir, "sheet.png")
	info := probe.MediaInfo{Valid: true, DurationSeconds: 2, Width: 640, Height: 480, FrameRate: 30}

	var percents []float64
	err := assembler.Build(context.Background(), Request{
		Source:     "clip.mp4",
		FPS:        2,
		Layout:     LayoutGrid,
		OutputPath: out,
	}, info, func(p float64) { percents = append(percents, p) })
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	sheet, openErr := imaging.Open(out)
	if openErr != nil {
		t.Fatalf("open sheet: %v", openErr)
	}
	if sheet.Bounds().Dx() != 4 || sheet.Bounds().Dy() != 4 {
		t.Fatalf("sheet is %v, want 4x4", sheet.Bounds())
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Fatalf("progress must end at 100: %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress regressed: %v", percents)
		}
	}

	// Temp extraction directories are gone.
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			t.Fatalf("leftover temp dir %s", entry.Name())
		}
	}
}

func TestBuildRejectsWithoutSpawning(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "spawned")
	script := fmt.Sprintf("#!/bin/sh\ntouch %q\n", marker)
	binary := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	sup := process.New(binary, 1, logging.NewNop())
	assembler := NewAssembler(sup, Options{TempRoot: dir}, logging.NewNop())

	info := probe.MediaInfo{Valid: true, DurationSeconds: 60, Width: 3840, Height: 2160, FrameRate: 30}
	err := assembler.Build(context.Background(), Request{
		Source:     "big.mp4",
		FPS:        30,
		OutputPath: filepath.Join(dir, "sheet.png"),
	}, info, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Fatal("validation must reject before any subprocess is spawned")
	}
}

func TestBuildNoFramesIsExtractionError(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	sup := process.New(binary, 1, logging.NewNop())
	assembler := NewAssembler(sup, Options{TempRoot: dir, ExtractTimeout: time.Minute, InactivityWindow: 10 * time.Second}, logging.NewNop())

	info := probe.MediaInfo{Valid: true, DurationSeconds: 2, Width: 640, Height: 480}
	err := assembler.Build(context.Background(), Request{
		Source:     "clip.mp4",
		FPS:        2,
		OutputPath: filepath.Join(dir, "sheet.png"),
	}, info, nil)
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}
