package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Submit a video URL for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				jobID, err := client.Analyze(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", jobID)
				if !watch {
					return nil
				}
				return watchJob(cmd, client, jobID)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow stage events until the job finishes")
	return cmd
}
