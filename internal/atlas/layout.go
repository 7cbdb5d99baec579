package atlas

import (
	"fmt"
	"math"
	"strings"

	"vidatlas/internal/services"
)

// MaxRasterDimension is the widest/tallest composed sheet the assembler will
// produce. PNG itself goes higher, but GPU texture units commonly do not.
const MaxRasterDimension = 16384

// Layout selects how extracted frames tile into the sheet.
type Layout int

const (
	// LayoutGrid packs frames into a near-square grid, row-major.
	LayoutGrid Layout = iota
	// LayoutHorizontal lays frames out in one row, wrapping into more rows
	// only when the sheet would exceed the maximum raster width.
	LayoutHorizontal
	// LayoutVertical lays frames out in one column, wrapping into more
	// columns only when the sheet would exceed the maximum raster height.
	LayoutVertical
)

// ParseLayout maps a configuration string to a Layout.
func ParseLayout(value string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "grid":
		return LayoutGrid, nil
	case "horizontal", "row":
		return LayoutHorizontal, nil
	case "vertical", "column":
		return LayoutVertical, nil
	default:
		return 0, fmt.Errorf("unknown atlas layout %q", value)
	}
}

func (l Layout) String() string {
	switch l {
	case LayoutGrid:
		return "grid"
	case LayoutHorizontal:
		return "horizontal"
	case LayoutVertical:
		return "vertical"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Grid is a solved sheet shape. Columns*Rows always covers the frame count
// and both pixel dimensions fit under MaxRasterDimension.
type Grid struct {
	Columns int
	Rows    int
}

// Solve computes the sheet shape for frameCount frames of the given pixel
// size. It fails with a layout error when no shape fits under the maximum
// raster dimension.
func Solve(frameCount, frameWidth, frameHeight int, mode Layout) (Grid, error) {
	if frameCount <= 0 || frameWidth <= 0 || frameHeight <= 0 {
		return Grid{}, services.Wrap(services.ErrLayout, "atlas", "layout",
			"no frames to lay out", nil)
	}
	maxColumns := MaxRasterDimension / frameWidth
	maxRows := MaxRasterDimension / frameHeight
	if maxColumns < 1 || maxRows < 1 {
		return Grid{}, services.Wrap(services.ErrLayout, "atlas", "layout",
			fmt.Sprintf("a single %dx%d frame exceeds the %dpx raster limit; use a smaller frame size", frameWidth, frameHeight, MaxRasterDimension), nil)
	}

	var grid Grid
	switch mode {
	case LayoutHorizontal:
		grid.Columns = frameCount
		if grid.Columns > maxColumns {
			grid.Columns = maxColumns
		}
		grid.Rows = ceilDiv(frameCount, grid.Columns)
	case LayoutVertical:
		grid.Rows = frameCount
		if grid.Rows > maxRows {
			grid.Rows = maxRows
		}
		grid.Columns = ceilDiv(frameCount, grid.Rows)
	default:
		grid.Columns = int(math.Ceil(math.Sqrt(float64(frameCount))))
		grid.Rows = ceilDiv(frameCount, grid.Columns)
		// Shrink whichever axis overflows and recompute the other. If both
		// end up clamped the final fit check below reports the failure.
		if grid.Columns > maxColumns {
			grid.Columns = maxColumns
			grid.Rows = ceilDiv(frameCount, grid.Columns)
		}
		if grid.Rows > maxRows {
			grid.Rows = maxRows
			grid.Columns = ceilDiv(frameCount, grid.Rows)
			if grid.Columns > maxColumns {
				grid.Columns = maxColumns
			}
		}
	}

	if grid.Columns > maxColumns || grid.Rows > maxRows || grid.Columns*grid.Rows < frameCount {
		return Grid{}, services.Wrap(services.ErrLayout, "atlas", "layout",
			fmt.Sprintf("%d frames of %dx%d cannot fit under a %dpx sheet; lower the fps or frame size", frameCount, frameWidth, frameHeight, MaxRasterDimension), nil)
	}
	return grid, nil
}

// position maps a frame index to its cell. Horizontal and grid sheets fill
// row-major; vertical sheets fill column-major.
func position(index int, grid Grid, mode Layout) (column, row int) {
	if mode == LayoutVertical {
		return index / grid.Rows, index % grid.Rows
	}
	return index % grid.Columns, index / grid.Columns
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
