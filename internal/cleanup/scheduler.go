package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler handles cleanup of stale scratch files left by interrupted renders
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		logger:   logger.With().Str("component", "cleanup").Logger(),
		now:      time.Now,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("max_age", s.maxAge).
		Msg("cleanup scheduler started")
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			s.logger.Info().Msg("cleanup scheduler stopped")
			return
		}
	}
}

// Sweep removes entries of the temp directory older than the max age.
// Render scratch directories are removed whole. It returns the number of
// entries removed.
func (s *Scheduler) Sweep() int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("dir", s.tempDir).Msg("cleanup failed to read temp dir")
		}
		return 0
	}

	now := s.now()
	var (
		deletedCount int
		deletedSize  int64
	)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		size := entrySize(path, info)
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to delete stale temp file")
			continue
		}
		deletedCount++
		deletedSize += size
		s.logger.Debug().
			Str("name", entry.Name()).
			Dur("age", age.Round(time.Minute)).
			Int64("size_kb", size/1024).
			Msg("deleted stale temp file")
	}

	if deletedCount > 0 {
		s.logger.Info().
			Int("files", deletedCount).
			Float64("freed_mb", float64(deletedSize)/(1024*1024)).
			Msg("cleanup complete")
	}
	return deletedCount
}

func entrySize(path string, info os.FileInfo) int64 {
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}

// EnsureDirs creates the working directories if they don't exist
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
