package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vidatlas/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion and atlas jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				output := job.Output
				if output == "" {
					output = job.Detail
				}
				rows = append(rows, []string{
					job.StartedAt.Local().Format(time.DateTime),
					job.Kind,
					filepath.Base(job.Source),
					string(job.Status),
					output,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Started", "Kind", "Source", "Status", "Output"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list")
	return cmd
}
