package dev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, w *Watcher) <-chan Change {
	t.Helper()
	changes := make(chan Change, 10)
	w.OnChange(func(c Change) {
		changes <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx)

	// Wait for initial scan
	time.Sleep(100 * time.Millisecond)
	return changes
}

func TestWatcher_Template(t *testing.T) {
	tmpDir := t.TempDir()
	template := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(template, []byte("<html>"), 0644); err != nil {
		t.Fatal(err)
	}

	watcher := NewWatcher(WatcherConfig{Template: template, Interval: 20 * time.Millisecond})
	changes := startWatcher(t, watcher)

	if err := os.WriteFile(template, []byte("<html><body>"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-changes:
		if change.Type != ChangeTemplate {
			t.Errorf("Expected template change, got %v", change.Type)
		}
		if change.Path != template {
			t.Errorf("Expected path %q, got %q", template, change.Path)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for change")
	}

	watcher.Stop()
	if watcher.IsRunning() {
		t.Error("watcher should be stopped")
	}
}

func TestWatcher_NewAndDeletedFiles(t *testing.T) {
	tmpDir := t.TempDir()

	watcher := NewWatcher(WatcherConfig{Paths: []string{tmpDir}, Interval: 20 * time.Millisecond})
	changes := startWatcher(t, watcher)

	newFile := filepath.Join(tmpDir, "manifest.json")
	if err := os.WriteFile(newFile, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-changes:
		if change.Type != ChangeAsset || change.Path != newFile {
			t.Errorf("unexpected change %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for new file")
	}

	if err := os.Remove(newFile); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-changes:
		if change.Path != newFile {
			t.Errorf("unexpected change %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for deletion")
	}
}

func TestWatcher_Ignore(t *testing.T) {
	w := NewWatcher(WatcherConfig{})

	tests := []struct {
		path   string
		ignore bool
	}{
		{"public/index.html", false},
		{"public/.git", true},
		{"public/node_modules", true},
		{"public/index.html.swp", true},
		{"public/index.html~", true},
		{"public/.DS_Store", true},
	}
	for _, tt := range tests {
		if got := w.shouldIgnore(tt.path); got != tt.ignore {
			t.Errorf("shouldIgnore(%q) = %v, want %v", tt.path, got, tt.ignore)
		}
	}
}
