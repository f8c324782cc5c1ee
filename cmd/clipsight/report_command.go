package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "report <job-id>",
		Short: "Fetch the analysis report for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				report, err := client.Report(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if target := strings.TrimSpace(outputPath); target != "" {
					if err := os.WriteFile(target, []byte(report), 0o644); err != nil {
						return fmt.Errorf("write report: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote report to %s\n", target)
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}
