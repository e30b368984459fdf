// Package scheduler runs the mirror's periodic tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// Task is one periodic job.
type Task struct {
	ID         string
	Name       string
	Cron       string // standard 5-field cron expression
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Status describes a registered task for the API.
type Status struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Cron     string     `json:"cron"`
	LastRun  *time.Time `json:"lastRun,omitempty"`
	NextRun  *time.Time `json:"nextRun,omitempty"`
	LastErr  string     `json:"lastError,omitempty"`
	Running  bool       `json:"running"`
}

type entry struct {
	task    Task
	job     gocron.Job
	lastRun *time.Time
	lastErr error
	running bool
}

// Scheduler wraps gocron with task bookkeeping.
type Scheduler struct {
	gocron gocron.Scheduler
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// New creates a scheduler.
func New(logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}
	return &Scheduler{
		gocron:  gs,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		entries: make(map[string]*entry),
	}, nil
}

// Register adds a task. IDs must be unique.
func (s *Scheduler) Register(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[task.ID]; exists {
		return fmt.Errorf("task %q already registered", task.ID)
	}

	job, err := s.gocron.NewJob(
		gocron.CronJob(task.Cron, false),
		gocron.NewTask(func() { s.execute(task.ID) }),
		gocron.WithName(task.Name),
		gocron.WithTags(task.ID),
	)
	if err != nil {
		return fmt.Errorf("schedule task %q: %w", task.ID, err)
	}

	s.entries[task.ID] = &entry{task: task, job: job}
	s.order = append(s.order, task.ID)

	s.logger.Info().
		Str("id", task.ID).
		Str("cron", task.Cron).
		Bool("runOnStart", task.RunOnStart).
		Msg("registered task")
	return nil
}

// Start begins cron execution and fires RunOnStart tasks.
func (s *Scheduler) Start() {
	s.gocron.Start()

	s.mu.RLock()
	var startup []string
	for _, id := range s.order {
		if s.entries[id].task.RunOnStart {
			startup = append(startup, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range startup {
		go s.execute(id)
	}
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	return s.gocron.Shutdown()
}

// RunNow triggers a task outside its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	e, exists := s.entries[id]
	running := exists && e.running
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("task %q not found", id)
	}
	if running {
		return fmt.Errorf("task %q is already running", id)
	}

	go s.execute(id)
	return nil
}

// Snapshot returns the status of all tasks in registration order.
func (s *Scheduler) Snapshot() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Status, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		st := Status{
			ID:      e.task.ID,
			Name:    e.task.Name,
			Cron:    e.task.Cron,
			LastRun: e.lastRun,
			Running: e.running,
		}
		if e.lastErr != nil {
			st.LastErr = e.lastErr.Error()
		}
		if next, err := e.job.NextRun(); err == nil {
			st.NextRun = &next
		}
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) execute(id string) {
	s.mu.Lock()
	e, exists := s.entries[id]
	if !exists || e.running {
		s.mu.Unlock()
		return
	}
	e.running = true
	s.mu.Unlock()

	started := time.Now()
	s.logger.Info().Str("id", id).Msg("task starting")

	err := e.task.Run(context.Background())

	s.mu.Lock()
	e.running = false
	e.lastRun = &started
	e.lastErr = err
	s.mu.Unlock()

	duration := time.Since(started)
	if err != nil {
		s.logger.Error().Err(err).Str("id", id).Dur("duration", duration).Msg("task failed")
		return
	}
	s.logger.Info().Str("id", id).Dur("duration", duration).Msg("task finished")
}
