package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	mod := time.Now().Add(-age)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestSweepRemovesStaleEntries(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "narration_old.mp3"), 7*time.Hour)
	touch(t, filepath.Join(dir, "narration_new.mp3"), time.Minute)

	scratch := filepath.Join(dir, "render_old")
	if err := os.Mkdir(scratch, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(scratch, "title.png"), 7*time.Hour)
	old := time.Now().Add(-7 * time.Hour)
	if err := os.Chtimes(scratch, old, old); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(dir, 30, 6, zerolog.Nop())
	if n := s.Sweep(); n != 2 {
		t.Fatalf("expected 2 removals, got %d", n)
	}

	if _, err := os.Stat(filepath.Join(dir, "narration_new.mp3")); err != nil {
		t.Fatal("fresh file should survive")
	}
	for _, gone := range []string{"narration_old.mp3", "render_old"} {
		if _, err := os.Stat(filepath.Join(dir, gone)); !os.IsNotExist(err) {
			t.Fatalf("%s should be removed", gone)
		}
	}
}

func TestSweepMissingDir(t *testing.T) {
	s := NewScheduler(filepath.Join(t.TempDir(), "missing"), 30, 6, zerolog.Nop())
	if n := s.Sweep(); n != 0 {
		t.Fatalf("expected nothing removed, got %d", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewScheduler(t.TempDir(), 30, 6, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	a, b := filepath.Join(base, "temp"), filepath.Join(base, "out", "nested")
	if err := EnsureDirs(a, "", b); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{a, b} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Fatalf("%s not created", d)
		}
	}
}
