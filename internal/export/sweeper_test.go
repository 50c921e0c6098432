package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func makeDir(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.Mkdir(path, 0o700); err != nil {
		t.Fatal(err)
	}
	if age > 0 {
		old := time.Now().Add(-age)
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSweeper_Sweep(t *testing.T) {
	base := t.TempDir()

	orphan := filepath.Join(base, workspacePrefix+"orphan")
	makeDir(t, orphan, 2*time.Hour)

	fresh := filepath.Join(base, workspacePrefix+"fresh")
	makeDir(t, fresh, 0)

	unrelated := filepath.Join(base, "keep-me")
	makeDir(t, unrelated, 2*time.Hour)

	live, err := NewWorkspace(base)
	if err != nil {
		t.Fatal(err)
	}
	defer live.Remove()
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(live.Dir, old, old); err != nil {
		t.Fatal(err)
	}

	metrics := NewMetrics(prometheus.NewRegistry())
	s := NewSweeper(base, time.Hour, metrics)

	removed, err := s.Sweep()
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Errorf("orphaned workspace should be removed, stat err = %v", err)
	}
	for _, keep := range []string{fresh, unrelated, live.Dir} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should be kept: %v", filepath.Base(keep), err)
		}
	}

	if got := testutil.ToFloat64(metrics.swept); got != 1 {
		t.Errorf("swept counter = %v, want 1", got)
	}
}

func TestSweeper_MissingDir(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "absent"), time.Hour, nil)

	removed, err := s.Sweep()
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	base := t.TempDir()
	orphan := filepath.Join(base, workspacePrefix+"orphan")
	makeDir(t, orphan, 2*time.Hour)

	s := NewSweeper(base, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, "*/15 * * * *"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Error("sweeper should be running")
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Errorf("Start should sweep immediately, stat err = %v", err)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("sweeper should be stopped")
	}
}

func TestSweeper_StartSchedules(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
		running  bool
	}{
		{name: "disabled", schedule: "", running: false},
		{name: "invalid", schedule: "every minute", wantErr: true},
		{name: "hourly", schedule: "@hourly", running: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSweeper(t.TempDir(), time.Hour, nil)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx, tt.schedule)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s.IsRunning() != tt.running {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.running)
			}
			s.Stop()
		})
	}
}
