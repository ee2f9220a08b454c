package main

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/krishi-kendra/krishi-kendra/jobs"
)

func newJobsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	trigger := &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a task now: " + strings.Join(jobs.TaskTypes(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.TaskTypes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := jobs.NewTask(args[0])
			if err != nil {
				return err
			}
			client := jobs.NewClient(asynq.RedisClientOpt{Addr: e.cfg.RedisAddr})
			defer client.Close()
			info, err := client.Enqueue(cmd.Context(), task, asynq.MaxRetry(3))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Show default queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: e.cfg.RedisAddr})
			defer inspector.Close()
			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
				info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Failed)
			return nil
		},
	}
	cmd.AddCommand(trigger, inspect)
	return cmd
}
