package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// runTimeout bounds a single execution. The sweeps and the policy sync
// finish in seconds, so a run that hits this is stuck on an upstream call.
const runTimeout = 5 * time.Minute

type RunnableTask struct {
	Name     string
	Interval time.Duration
	Handler  TaskFunc

	registeredAt time.Time

	mu           sync.RWMutex
	Running      bool
	LastRun      time.Time
	LastDuration time.Duration
	LastResult   string
	Logs         []LogEntry
}

func (t *RunnableTask) Run() {
	logger := log.With().Str("task", t.Name).Logger()

	t.mu.Lock()
	if t.Running {
		t.mu.Unlock()
		logger.Warn().Msg("previous run still in progress, skipping")
		return
	}
	t.Running = true
	t.Logs = t.Logs[:0]
	t.mu.Unlock()

	taskLogger := NewCompositeLogger(t, logger)
	taskLogger.Info("starting task execution")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	err := t.Handler(ctx, taskLogger)
	duration := time.Since(start)

	t.mu.Lock()
	t.Running = false
	t.LastRun = time.Now()
	t.LastDuration = duration
	if err != nil {
		t.LastResult = fmt.Sprintf("failed: %v", err)
	} else {
		t.LastResult = "success"
	}
	t.mu.Unlock()

	if err != nil {
		taskLogger.Error("task failed after %s: %v", duration, err)
	} else {
		taskLogger.Info("task completed successfully in %s", duration)
	}
}

func (t *RunnableTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var next time.Time
	if t.Interval > 0 {
		anchor := t.LastRun
		if anchor.IsZero() {
			anchor = t.registeredAt
		}
		next = anchor.Add(t.Interval)
	}

	return TaskStatus{
		Name:         t.Name,
		Running:      t.Running,
		LastRun:      t.LastRun,
		LastDuration: t.LastDuration,
		LastResult:   t.LastResult,
		NextRun:      next,
	}
}

func (t *RunnableTask) GetLogs() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]LogEntry, len(t.Logs))
	copy(out, t.Logs)
	return out
}

func (t *RunnableTask) AppendLog(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Logs = append(t.Logs, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
	})

	// drop the oldest entries in place so the backing array stays bounded
	if overflow := len(t.Logs) - MaxLogsPerTask; overflow > 0 {
		t.Logs = append(t.Logs[:0], t.Logs[overflow:]...)
	}
}
