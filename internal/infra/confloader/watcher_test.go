package confloader

import (
	"bytes"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

func TestNewWatcher_Defaults(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
	if w.log == nil {
		t.Error("log is nil")
	}
}

func TestNewWatcher_Options(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New(logger.Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}

	w, err := NewWatcher(WithWatcherLogger(l), WithDebounce(0), WithDebounce(-time.Second))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.debounce != 0 {
		t.Errorf("debounce = %v, negative values should be ignored", w.debounce)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("configuration watcher stopped")) {
		t.Errorf("logger not applied, log: %s", buf.String())
	}
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := w.Watch("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Watch() expected error for nonexistent directory")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.StartAsync()

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_ScheduleCoalesces(t *testing.T) {
	w, err := NewWatcher(WithDebounce(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })
	w.OnChange(func(string) { calls.Add(10) })

	for i := 0; i < 5; i++ {
		w.schedule("/etc/kvault.yaml")
	}
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 11 {
		t.Errorf("callbacks total = %d, want 11 (one delivery to each)", got)
	}
}

func TestWatcher_StopDropsPending(t *testing.T) {
	w, err := NewWatcher(WithDebounce(100 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })
	w.schedule("/etc/kvault.yaml")
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	w.schedule("/etc/kvault.yaml")

	time.Sleep(250 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callbacks after Stop = %d, want 0", got)
	}
}

func startWatcher(t *testing.T, path string) <-chan string {
	t.Helper()
	w, err := NewWatcher(WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(p string) {
		select {
		case changed <- p:
		default:
		}
	})

	w.StartAsync()
	t.Cleanup(func() { _ = w.Stop() })

	// Let the watch goroutine reach its select.
	time.Sleep(100 * time.Millisecond)
	return changed
}

func TestWatcher_FileChange(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	changed := startWatcher(t, configFile)

	if err := os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case path := <-changed:
		if path != filepath.Clean(configFile) {
			t.Errorf("OnChange() path = %q, want %q", path, configFile)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered within timeout")
	}
}

func TestWatcher_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	changed := startWatcher(t, configFile)

	tmp := filepath.Join(dir, ".config.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("a: 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Rename(tmp, configFile); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	select {
	case path := <-changed:
		if path != filepath.Clean(configFile) {
			t.Errorf("OnChange() path = %q, want %q", path, configFile)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("rename over the watched file was not reported")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	changed := startWatcher(t, configFile)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case path := <-changed:
		t.Errorf("unexpected change notification for %q", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_FileCreate(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")

	// Only the directory exists so far.
	changed := startWatcher(t, configFile)

	if err := os.WriteFile(configFile, []byte("new: content"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered for new file within timeout")
	}
}
