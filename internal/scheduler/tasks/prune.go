package tasks

import (
	"context"

	"github.com/relicmirror/relicmirror/internal/prune"
	"github.com/relicmirror/relicmirror/internal/scheduler"
)

const PruneTaskID = "retention-prune"

// RegisterPruneTask schedules the retention pass. When dryRun is set the
// task classifies and reports but never mutates anything; this is the normal
// mode for a freshly deployed mirror until the operator has reviewed a few
// reports.
func RegisterPruneTask(sched *scheduler.Scheduler, svc *prune.Service, cron string, dryRun bool) error {
	return sched.Register(scheduler.Task{
		ID:   PruneTaskID,
		Name: "Retention Prune",
		Cron: cron,
		Run: func(ctx context.Context) error {
			_, err := svc.Run(ctx, dryRun)
			return err
		},
	})
}
