package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vidatlas/internal/deps"
	"vidatlas/internal/media/probe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			prober := probe.New(deps.ResolveTool(cfg.Tools.FFprobe, "ffprobe"), logger)
			info := prober.Probe(cmd.Context(), args[0])
			if !info.Valid {
				return fmt.Errorf("%s does not probe as usable video", args[0])
			}

			audio := info.AudioCodec
			if !info.HasAudio {
				audio = "none"
			}
			rows := [][]string{
				{"Resolution", info.ResolutionLabel()},
				{"Duration", fmt.Sprintf("%.2fs", info.DurationSeconds)},
				{"Frame rate", fmt.Sprintf("%.3f", info.FrameRate)},
				{"Video codec", info.VideoCodec},
				{"Audio codec", audio},
				{"Bit rate", strconv.FormatUint(info.BitRate, 10)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}
