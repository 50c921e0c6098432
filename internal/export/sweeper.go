package export

// sweeper.go removes export workspaces orphaned by a crash.
//
// A running export always removes its own workspace, but a process that
// dies mid-export leaves its directory behind. The sweeper runs on a cron
// schedule, deletes export-* directories older than maxAge, and skips any
// directory whose lock file is still held by a live export.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
)

// DefaultSweepMaxAge is the minimum age of a workspace before it is swept.
const DefaultSweepMaxAge = time.Hour

// Sweeper periodically deletes stale export workspaces.
type Sweeper struct {
	dir     string
	maxAge  time.Duration
	metrics *Metrics
	cron    *cron.Cron
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper for workspaces under dir.
func NewSweeper(dir string, maxAge time.Duration, metrics *Metrics) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultSweepMaxAge
	}
	return &Sweeper{
		dir:     dir,
		maxAge:  maxAge,
		metrics: metrics,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "export.sweeper"),
		now:     time.Now,
	}
}

// Start runs one sweep immediately and then on schedule (standard
// five-field cron syntax). An empty schedule disables periodic sweeps.
// The sweeper stops when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.runSweep()

	s.cron.Start()
	s.running = true
	s.logger.Info("export sweeper started", "schedule", schedule, "max_age", s.maxAge)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("export sweeper stopped")
	}
}

// IsRunning reports whether the schedule is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) runSweep() {
	removed, err := s.Sweep()
	if err != nil {
		s.logger.Error("export sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("removed orphaned export workspaces", "count", removed)
	} else {
		s.logger.Debug("export sweep completed, nothing to remove")
	}
}

// Sweep deletes stale, unlocked workspaces and returns how many it removed.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read export temp dir: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workspacePrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(s.dir, entry.Name())
		ok, err := removeIfUnlocked(dir)
		if err != nil {
			s.logger.Warn("could not sweep workspace", "dir", dir, "error", err)
			continue
		}
		if ok {
			removed++
		}
	}

	s.metrics.sweptWorkspaces(removed)
	return removed, nil
}

// removeIfUnlocked deletes dir only if its lock can be taken right now.
func removeIfUnlocked(dir string) (bool, error) {
	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return false, err
	}
	if !locked {
		return false, nil
	}
	defer lock.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		return false, err
	}
	return true, nil
}
