package atlas

import (
	"errors"
	"testing"

	"vidatlas/internal/services"
)

func TestSolveGridInvariants(t *testing.T) {
	cases := []struct {
		frameCount  int
		frameWidth  int
		frameHeight int
		mode        Layout
	}{
		{1, 64, 64, LayoutGrid},
		{4, 64, 64, LayoutGrid},
		{10, 320, 240, LayoutGrid},
		{1024, 256, 256, LayoutGrid},
		{100, 64, 64, LayoutHorizontal},
		{1000, 128, 64, LayoutHorizontal},
		{100, 64, 64, LayoutVertical},
		{1000, 64, 128, LayoutVertical},
		{7, 1920, 1080, LayoutGrid},
		{513, 512, 16, LayoutHorizontal},
	}
	for _, tc := range cases {
		grid, err := Solve(tc.frameCount, tc.frameWidth, tc.frameHeight, tc.mode)
		if err != nil {
			t.Fatalf("Solve(%+v) failed: %v", tc, err)
		}
		if grid.Columns*grid.Rows < tc.frameCount {
			t.Fatalf("%+v: %dx%d cells cannot hold %d frames", tc, grid.Columns, grid.Rows, tc.frameCount)
		}
		if grid.Columns*tc.frameWidth > MaxRasterDimension {
			t.Fatalf("%+v: sheet width %d over limit", tc, grid.Columns*tc.frameWidth)
		}
		if grid.Rows*tc.frameHeight > MaxRasterDimension {
			t.Fatalf("%+v: sheet height %d over limit", tc, grid.Rows*tc.frameHeight)
		}
	}
}

func TestSolveHorizontalSingleRow(t *testing.T) {
	grid, err := Solve(10, 64, 64, LayoutHorizontal)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if grid.Columns != 10 || grid.Rows != 1 {
		t.Fatalf("expected 10x1, got %dx%d", grid.Columns, grid.Rows)
	}
}

func TestSolveHorizontalWraps(t *testing.T) {
	// 300 frames at 64px would need 19200px in one row.
	grid, err := Solve(300, 64, 64, LayoutHorizontal)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if grid.Rows < 2 {
		t.Fatalf("expected wrap into multiple rows, got %dx%d", grid.Columns, grid.Rows)
	}
	if grid.Columns != MaxRasterDimension/64 {
		t.Fatalf("expected max columns %d, got %d", MaxRasterDimension/64, grid.Columns)
	}
}

func TestSolveVerticalWraps(t *testing.T) {
	grid, err := Solve(300, 64, 64, LayoutVertical)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if grid.Columns < 2 {
		t.Fatalf("expected wrap into multiple columns, got %dx%d", grid.Columns, grid.Rows)
	}
}

func TestSolveOversizedFrameFails(t *testing.T) {
	_, err := Solve(1, MaxRasterDimension+1, 64, LayoutGrid)
	if !errors.Is(err, services.ErrLayout) {
		t.Fatalf("expected layout error, got %v", err)
	}
}

func TestSolveImpossibleCountFails(t *testing.T) {
	// 8192px frames allow only 2x2 cells; five frames cannot fit.
	_, err := Solve(5, 8192, 8192, LayoutGrid)
	if !errors.Is(err, services.ErrLayout) {
		t.Fatalf("expected layout error, got %v", err)
	}
}

func TestPositionRowMajor(t *testing.T) {
	grid := Grid{Columns: 3, Rows: 2}
	wantCols := []int{0, 1, 2, 0, 1, 2}
	wantRows := []int{0, 0, 0, 1, 1, 1}
	for i := 0; i < 6; i++ {
		col, row := position(i, grid, LayoutGrid)
		if col != wantCols[i] || row != wantRows[i] {
			t.Fatalf("index %d: got (%d,%d), want (%d,%d)", i, col, row, wantCols[i], wantRows[i])
		}
	}
}

func TestPositionColumnMajor(t *testing.T) {
	grid := Grid{Columns: 2, Rows: 3}
	col, row := position(4, grid, LayoutVertical)
	if col != 1 || row != 1 {
		t.Fatalf("index 4: got (%d,%d), want (1,1)", col, row)
	}
}

func TestParseLayout(t *testing.T) {
	for value, want := range map[string]Layout{
		"":           LayoutGrid,
		"grid":       LayoutGrid,
		"HORIZONTAL": LayoutHorizontal,
		"row":        LayoutHorizontal,
		"vertical":   LayoutVertical,
		"column":     LayoutVertical,
	} {
		got, err := ParseLayout(value)
		if err != nil || got != want {
			t.Fatalf("ParseLayout(%q) = %v, %v; want %v", value, got, err, want)
		}
	}
	if _, err := ParseLayout("diagonal"); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}
