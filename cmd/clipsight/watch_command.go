package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipsight/internal/jobstore"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a job's stage events until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				return watchJob(cmd, client, args[0])
			})
		},
	}
}

func watchJob(cmd *cobra.Command, client *apiClient, jobID string) error {
	out := cmd.OutOrStdout()
	var terminal jobstore.Stage
	err := client.Watch(cmd.Context(), jobID, func(stage string) error {
		fmt.Fprintln(out, stage)
		if s := jobstore.Stage(stage); s.Terminal() {
			terminal = s
		}
		return nil
	})
	if err != nil {
		return err
	}
	if terminal == jobstore.StageFailed {
		record, statusErr := client.Status(cmd.Context(), jobID)
		if statusErr == nil && record.Detail != "" {
			return fmt.Errorf("job %s failed: %s", jobID, record.Detail)
		}
		return fmt.Errorf("job %s failed", jobID)
	}
	return nil
}
