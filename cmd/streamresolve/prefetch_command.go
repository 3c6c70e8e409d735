package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPrefetchCommand(open openServices) *cobra.Command {
	var flags episodeFlags

	cmd := &cobra.Command{
		Use:   "prefetch <tmdb-id>",
		Short: "Queue a title for background resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args[0])
			if err != nil {
				return err
			}

			svc, err := open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			task, err := svc.Prefetch.Enqueue(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s %s (task %s)\n", task.MediaType, task.ExternalID, task.ID)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
