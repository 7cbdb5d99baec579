package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vidatlas/internal/atlas"
	"vidatlas/internal/engine"
	"vidatlas/internal/plan"
)

func newAtlasCommand(ctx *commandContext) *cobra.Command {
	var (
		fpsFlag       float64
		layoutFlag    string
		frameSizeFlag string
		outputDirFlag string
	)

	cmd := &cobra.Command{
		Use:   "atlas <file>",
		Short: "Extract frames into a sprite-sheet PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			req := engine.AtlasRequest{
				Source:    args[0],
				FPS:       fpsFlag,
				OutputDir: outputDirFlag,
			}
			if req.FPS <= 0 {
				req.FPS = float64(cfg.Atlas.FPS)
			}
			req.Layout, err = atlas.ParseLayout(pick(layoutFlag, cfg.Atlas.Layout))
			if err != nil {
				return err
			}
			if frameSizeFlag != "" {
				width, height, ok := plan.ParseResolution(frameSizeFlag)
				if !ok {
					return fmt.Errorf("invalid frame size %q, want WxH", frameSizeFlag)
				}
				req.FrameWidth = int(width)
				req.FrameHeight = int(height)
			} else if cfg.Atlas.FrameSize > 0 {
				// Square bound with aspect-preserving downscale caps the
				// longer side at the configured size.
				req.FrameWidth = cfg.Atlas.FrameSize
				req.FrameHeight = cfg.Atlas.FrameSize
			}

			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				sink, finish := newProgressSink("Building atlas")
				defer finish()

				output, err := eng.GenerateAtlas(runCtx, req, sink)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&fpsFlag, "fps", 0, "Frame extraction rate (default from config)")
	cmd.Flags().StringVarP(&layoutFlag, "layout", "l", "", "Sheet layout: grid, horizontal, vertical")
	cmd.Flags().StringVar(&frameSizeFlag, "frame-size", "", "Frame size WxH (default keeps source size)")
	cmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "", "Output directory (default from config)")

	return cmd
}
