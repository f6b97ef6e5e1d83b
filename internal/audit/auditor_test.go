package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobbylite/enrollhub/internal/core"
)

func seedEntries(t *testing.T, a *InMemoryAuditor, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := a.Log(core.AuditEntry{
			ID:     fmt.Sprintf("c%d", i),
			Action: "request.create",
			UserID: fmt.Sprintf("u%d", i%2),
		})
		if err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}
}

func TestInMemoryAuditor_GetRecent(t *testing.T) {
	a := NewInMemoryAuditor()
	seedEntries(t, a, 5)

	got, err := a.GetRecent(3)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetRecent() returned %d entries, want 3", len(got))
	}
	// Oldest first within the window.
	if got[0].ID != "c2" || got[2].ID != "c4" {
		t.Errorf("GetRecent() window = [%s..%s], want [c2..c4]", got[0].ID, got[2].ID)
	}

	// A limit above the entry count returns everything.
	if got, _ := a.GetRecent(100); len(got) != 5 {
		t.Errorf("GetRecent(100) returned %d entries, want 5", len(got))
	}
}

func TestInMemoryAuditor_Find(t *testing.T) {
	a := NewInMemoryAuditor()
	seedEntries(t, a, 6)

	got, err := a.Find(func(e core.AuditEntry) bool { return e.UserID == "u0" }, 2)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Find() returned %d entries, want 2", len(got))
	}
	// Newest matches first, truncated at the limit.
	if got[0].ID != "c4" || got[1].ID != "c2" {
		t.Errorf("Find() = [%s, %s], want [c4, c2]", got[0].ID, got[1].ID)
	}
}

func TestFileAuditor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	a, err := NewFileAuditor(path)
	if err != nil {
		t.Fatalf("NewFileAuditor() error = %v", err)
	}
	entries := []core.AuditEntry{
		{ID: "c1", Action: "request.approve", Success: true},
		{ID: "c2", Action: "request.deny", Success: true},
	}
	for _, e := range entries {
		if err := a.Log(e); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening audit file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var got []core.AuditEntry
	for scanner.Scan() {
		var e core.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("parsing audit line %q: %v", scanner.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[1].Action != "request.deny" {
		t.Errorf("audit file entries = %v, want the logged entries in order", got)
	}

	// Reopening appends instead of truncating.
	a, err = NewFileAuditor(path)
	if err != nil {
		t.Fatalf("NewFileAuditor() reopen error = %v", err)
	}
	if err := a.Log(core.AuditEntry{ID: "c3", Action: "request.create"}); err != nil {
		t.Fatalf("Log() after reopen error = %v", err)
	}
	a.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading audit file: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 3 {
		t.Errorf("audit file has %d lines after reopen, want 3", lines)
	}
}
