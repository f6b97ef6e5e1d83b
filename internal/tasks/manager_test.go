package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bobbylite/enrollhub/internal/logging"
)

func waitForResult(t *testing.T, m *Manager, name string) TaskStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, status := range m.ListStatus() {
			if status.Name == name && !status.Running && status.LastResult != "" {
				return status
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %q did not finish in time", name)
	return TaskStatus{}
}

func TestManager_Trigger(t *testing.T) {
	m := NewManager()
	ran := make(chan struct{}, 1)
	m.Register("sweep", 0, func(context.Context, logging.InternalLogger) error {
		ran <- struct{}{}
		return nil
	})

	if err := m.Trigger("sweep"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("task handler was not invoked")
	}

	status := waitForResult(t, m, "sweep")
	if status.LastResult != "success" {
		t.Errorf("lastResult = %q, want success", status.LastResult)
	}
	if status.LastRun.IsZero() {
		t.Error("lastRun was not recorded")
	}
	if status.LastDuration <= 0 {
		t.Error("lastDuration was not recorded")
	}
}

func TestManager_TriggerUnknown(t *testing.T) {
	m := NewManager()

	err := m.Trigger("missing")
	var notFound TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Trigger() error = %v, want TaskNotFoundError", err)
	}
	if notFound.Name != "missing" {
		t.Errorf("error names task %q, want missing", notFound.Name)
	}
}

func TestManager_GetLogs(t *testing.T) {
	m := NewManager()
	m.Register("sweep", 0, func(_ context.Context, logger logging.InternalLogger) error {
		logger.Info("removed %d invitations", 3)
		return nil
	})

	if err := m.Trigger("sweep"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	waitForResult(t, m, "sweep")

	logs, err := m.GetLogs("sweep")
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	found := false
	for _, entry := range logs {
		if strings.Contains(entry.Message, "removed 3 invitations") {
			found = true
		}
	}
	if !found {
		t.Errorf("GetLogs() = %v, want the handler's log line", logs)
	}

	if _, err := m.GetLogs("missing"); err == nil {
		t.Error("GetLogs() for unknown task error = nil, want TaskNotFoundError")
	}
}

func TestRunnableTask_FailureResult(t *testing.T) {
	task := &RunnableTask{
		Name: "flaky",
		Handler: func(context.Context, logging.InternalLogger) error {
			return fmt.Errorf("backend unavailable")
		},
	}

	task.Run()

	status := task.Status()
	if !strings.HasPrefix(status.LastResult, "failed") {
		t.Errorf("lastResult = %q, want a failure", status.LastResult)
	}
	if status.Running {
		t.Error("task still reported as running")
	}
}

func TestRunnableTask_LogCap(t *testing.T) {
	task := &RunnableTask{Name: "chatty"}

	for i := 0; i < MaxLogsPerTask+10; i++ {
		task.AppendLog("info", fmt.Sprintf("line %d", i))
	}

	logs := task.GetLogs()
	if len(logs) != MaxLogsPerTask {
		t.Fatalf("kept %d log entries, want %d", len(logs), MaxLogsPerTask)
	}
	// The oldest entries are dropped first.
	if logs[0].Message != "line 10" {
		t.Errorf("oldest kept entry = %q, want line 10", logs[0].Message)
	}
}
