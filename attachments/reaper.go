package attachments

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// LocatorSource lists the locators that still have an owning record.
type LocatorSource interface {
	AttachmentLocators(ctx context.Context) (map[string]struct{}, error)
}

// Reaper removes stored files that no attachment record references. Files
// younger than the grace period are kept so an upload whose row is not yet
// committed is never collected.
type Reaper struct {
	files  *FileStore
	refs   LocatorSource
	grace  time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewReaper(files *FileStore, refs LocatorSource, grace time.Duration, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{
		files:  files,
		refs:   refs,
		grace:  grace,
		logger: logger.Named("reaper"),
		now:    time.Now,
	}
}

// RunOnce performs one collection pass and returns how many files were removed.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	referenced, err := r.refs.AttachmentLocators(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load referenced locators: %w", err)
	}
	files, err := r.files.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := r.now().Add(-r.grace)
	removed := 0
	for _, f := range files {
		if _, ok := referenced[f.Locator]; ok {
			continue
		}
		if f.ModTime.After(cutoff) {
			continue
		}
		if err := r.files.Remove(f.Locator); err != nil {
			r.logger.Warn("failed to remove orphan", zap.String("locator", f.Locator), zap.Error(err))
			continue
		}
		removed++
	}

	r.logger.Info("reap finished", zap.Int("scanned", len(files)), zap.Int("removed", removed))
	return removed, nil
}

// Schedule runs RunOnce on spec (standard cron syntax or a descriptor such as
// "@every 1h") until ctx is done. The returned cron is already started.
func (r *Reaper) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("scheduled reap failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid reaper schedule %q: %w", spec, err)
	}
	c.Start()
	r.logger.Info("reaper scheduled", zap.String("schedule", spec))
	return c, nil
}
