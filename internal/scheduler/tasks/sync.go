package tasks

import (
	"github.com/relicmirror/relicmirror/internal/mirror"
	"github.com/relicmirror/relicmirror/internal/scheduler"
)

const SyncTaskID = "mirror-sync"

// RegisterSyncTask schedules the pull of newly published builds. It runs once
// at startup so a mirror that was down does not wait a full interval to catch
// up.
func RegisterSyncTask(sched *scheduler.Scheduler, svc *mirror.Service, cron string) error {
	return sched.Register(scheduler.Task{
		ID:         SyncTaskID,
		Name:       "Mirror Sync",
		Cron:       cron,
		RunOnStart: true,
		Run:        svc.Sync,
	})
}
