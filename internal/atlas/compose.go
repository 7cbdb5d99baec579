package atlas

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"vidatlas/internal/fileutil"
	"vidatlas/internal/logging"
	"vidatlas/internal/services"
)

// composeReportEvery batches progress reports so a large sheet does not spam
// the sink once per frame.
const composeReportEvery = 16

// compose blits every frame into a single transparent raster and saves it as
// PNG at req.OutputPath. Frames are pasted, not blended: sprite sheets are
// pixel-exact and smoothing would blur sprite edges.
func (a *Assembler) compose(req Request, frames []string, progress func(float64)) error {
	first, err := imaging.Open(frames[0])
	if err != nil {
		return services.Wrap(services.ErrExtraction, "atlas", "decode frame", "", err)
	}
	frameWidth := first.Bounds().Dx()
	frameHeight := first.Bounds().Dy()

	grid, err := Solve(len(frames), frameWidth, frameHeight, req.Layout)
	if err != nil {
		return err
	}
	a.logger.Info("composing sheet",
		logging.Int("columns", grid.Columns),
		logging.Int("rows", grid.Rows),
		logging.Int("frame_width", frameWidth),
		logging.Int("frame_height", frameHeight))

	canvas := imaging.New(grid.Columns*frameWidth, grid.Rows*frameHeight, color.NRGBA{})
	for i, path := range frames {
		var frame image.Image
		if i == 0 {
			frame = first
		} else {
			frame, err = imaging.Open(path)
			if err != nil {
				return services.Wrap(services.ErrExtraction, "atlas", "decode frame", "", err)
			}
		}
		if b := frame.Bounds(); b.Dx() != frameWidth || b.Dy() != frameHeight {
			frame = imaging.Resize(frame, frameWidth, frameHeight, imaging.NearestNeighbor)
		}
		column, row := position(i, grid, req.Layout)
		canvas = imaging.Paste(canvas, frame, image.Pt(column*frameWidth, row*frameHeight))

		if progress != nil && (i+1)%composeReportEvery == 0 {
			progress(float64(i+1) / float64(len(frames)) * 100)
		}
	}

	if err := imaging.Save(canvas, req.OutputPath); err != nil {
		_ = fileutil.RemoveFileIfExists(req.OutputPath)
		return fmt.Errorf("save sheet %s: %w", req.OutputPath, err)
	}
	if !fileutil.IsNonEmptyFile(req.OutputPath) {
		_ = fileutil.RemoveFileIfExists(req.OutputPath)
		return fmt.Errorf("save sheet %s: empty file written", req.OutputPath)
	}
	return nil
}
