package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipsight/internal/jobstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current stage of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				record, err := client.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRecord(cmd, record)
				return nil
			})
		},
	}
}

func printRecord(cmd *cobra.Command, record jobstore.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:     %s\n", record.JobID)
	fmt.Fprintf(out, "Stage:   %s\n", record.Stage)
	if record.Detail != "" {
		fmt.Fprintf(out, "Detail:  %s\n", record.Detail)
	}
	fmt.Fprintf(out, "Created: %s\n", record.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated: %s\n", record.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
}
