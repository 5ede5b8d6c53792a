package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledIsNoop(t *testing.T) {
	if err := Configure(Options{}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	// Must not panic or create files.
	Get(CategoryScheduler).Info("dropped message")
	if Enabled() {
		t.Error("expected logging disabled")
	}
}

func TestCategoryFilesCreated(t *testing.T) {
	dir := t.TempDir()
	if err := Configure(Options{Enabled: true, Dir: dir, Level: "debug"}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	defer Close()

	Matcher("role matched")
	SchedulerDebug("timer armed")
	API("request sent")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	found := map[string]bool{}
	for _, e := range entries {
		for _, cat := range []string{"matcher", "scheduler", "api"} {
			if strings.Contains(e.Name(), cat) {
				found[cat] = true
			}
		}
	}
	for _, cat := range []string{"matcher", "scheduler", "api"} {
		if !found[cat] {
			t.Errorf("expected log file for category %q", cat)
		}
	}
}

func TestLevelFilter(t *testing.T) {
	dir := t.TempDir()
	if err := Configure(Options{Enabled: true, Dir: dir, Level: "warn"}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	defer Close()

	l := Get(CategoryAPI)
	l.Debug("should be filtered")
	l.Info("should be filtered")
	l.Warn("should appear")
	Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one log file, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "filtered") {
		t.Errorf("filtered levels leaked into log: %s", content)
	}
	if !strings.Contains(content, "should appear") {
		t.Errorf("warn entry missing from log: %s", content)
	}
}
