package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vidatlas/internal/engine"
	"vidatlas/internal/plan"
	"vidatlas/internal/services"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag     string
		qualityFlag    string
		resolutionFlag string
		fpsFlag        string
		noAudio        bool
		ogvModeFlag    string
		outputDirFlag  string
	)

	cmd := &cobra.Command{
		Use:   "convert <file> [file...]",
		Short: "Transcode video files into a Godot-friendly format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			req := engine.ConvertRequest{
				Resolution: pick(resolutionFlag, cfg.Defaults.Resolution),
				FPS:        pick(fpsFlag, cfg.Defaults.FPS),
				KeepAudio:  cfg.Defaults.KeepAudio && !noAudio,
				OutputDir:  outputDirFlag,
			}
			req.Format, err = plan.ParseFormat(pick(formatFlag, cfg.Defaults.Format))
			if err != nil {
				return err
			}
			req.Quality, err = plan.ParseQuality(pick(qualityFlag, cfg.Defaults.Quality))
			if err != nil {
				return err
			}
			req.OGVMode, err = plan.ParseOGVMode(pick(ogvModeFlag, cfg.Defaults.OGVMode))
			if err != nil {
				return err
			}

			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				out := cmd.OutOrStdout()
				sink, finish := newProgressSink("Converting")
				defer finish()

				if len(args) == 1 {
					req.Source = args[0]
					output, err := eng.Convert(runCtx, req, sink)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Wrote %s\n", output)
					return nil
				}

				results, err := eng.ConvertBatch(runCtx, args, req, sink)
				finish()
				failed := 0
				for _, result := range results {
					if result.Err != nil {
						failed++
						fmt.Fprintf(out, "FAILED %s: %s\n", result.Source, services.Summary(result.Err))
						continue
					}
					fmt.Fprintf(out, "Wrote %s\n", result.Output)
				}
				if err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(results))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: ogv, mp4, webm, gif")
	cmd.Flags().StringVarP(&qualityFlag, "quality", "q", "", "Quality preset: ultra, high, balanced, optimized, tiny")
	cmd.Flags().StringVarP(&resolutionFlag, "resolution", "r", "", "Target resolution WxH (default keeps source)")
	cmd.Flags().StringVar(&fpsFlag, "fps", "", "Target frame rate (default keeps source)")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Strip the audio track")
	cmd.Flags().StringVar(&ogvModeFlag, "ogv-mode", "", "Theora tuning: none, streaming, balanced, archive")
	cmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "", "Output directory (default from config)")

	return cmd
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
