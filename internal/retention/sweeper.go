// Package retention removes aged processing artifacts on a fixed schedule.
package retention

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/narravid/narravid-server/internal/config"
)

// sweepInterval is how often the background sweep runs after the one at
// startup.
const sweepInterval = time.Hour

// Sweeper deletes artifacts older than the configured retention window.
// Cache entries keep twice the window since their reuse value outlives the
// session that produced them.
type Sweeper struct {
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time
}

func NewSweeper(cfg config.Config, logger *slog.Logger) *Sweeper {
	return &Sweeper{cfg: cfg, logger: logger, now: time.Now}
}

// Start runs a sweep immediately and then hourly until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.Sweep()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes expired artifacts across all artifact directories and
// returns the number of entries deleted. Per-entry errors are logged and
// skipped.
func (s *Sweeper) Sweep() int {
	maxAge := s.cfg.RetentionMaxAge()
	removed := 0

	for _, dir := range []string{
		s.cfg.FramesDir(),
		s.cfg.OutputDir(),
		s.cfg.AudioDir(),
		s.cfg.UploadsDir(),
		s.cfg.DownloadsDir(),
	} {
		removed += s.sweepDir(dir, maxAge)
	}
	removed += s.sweepDir(s.cfg.CacheDir(), 2*maxAge)

	if removed > 0 {
		s.logger.Info("retention sweep removed artifacts", "count", removed)
	}
	return removed
}

func (s *Sweeper) sweepDir(dir string, maxAge time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cannot read artifact directory", "dir", dir, "error", err)
		}
		return 0
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("cannot stat artifact", "name", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn("cannot remove artifact", "name", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed
}
