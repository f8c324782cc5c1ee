package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipsight/internal/jobstore"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List all jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				records, err := client.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				if plain || !isTerminal(out) {
					fmt.Fprint(out, renderJobsPlain(records))
					return nil
				}
				fmt.Fprintln(out, renderJobsTable(records))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print tab-separated output without table borders")
	return cmd
}

func renderJobsTable(records []jobstore.Record) string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, jobRow(record))
	}
	return renderTable([]string{"JOB", "STAGE", "UPDATED", "DETAIL"}, rows)
}

func renderJobsPlain(records []jobstore.Record) string {
	var sb strings.Builder
	for _, record := range records {
		sb.WriteString(strings.Join(jobRow(record), "\t"))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func jobRow(record jobstore.Record) []string {
	detail := record.Detail
	if len(detail) > 60 {
		detail = detail[:57] + "..."
	}
	return []string{
		record.JobID,
		string(record.Stage),
		record.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		detail,
	}
}
