package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidatlas/internal/plan"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "formats",
		Short:       "List supported output formats and quality presets",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			title := cases.Title(language.English)

			rows := make([][]string, 0, len(plan.Formats()))
			for _, format := range plan.Formats() {
				rows = append(rows, []string{
					strings.ToUpper(format.String()),
					format.Extension(),
					title.String(format.Description()),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Format", "Extension", "Description"}, rows))

			qualities := make([]string, 0, len(plan.Qualities()))
			for _, quality := range plan.Qualities() {
				qualities = append(qualities, quality.String())
			}
			fmt.Fprintf(out, "Quality presets (best to smallest): %s\n", strings.Join(qualities, ", "))
			fmt.Fprintln(out, "Theora modes: none, streaming, balanced, archive")
			fmt.Fprintln(out, "Atlas layouts: grid, horizontal, vertical")
			return nil
		},
	}
}
