package scheduler

import (
	"context"
	"time"

	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

// GarbageCollector periodically reclaims UrlRecords no collection
// references anymore and merges duplicate records for the same URL.
type GarbageCollector struct {
	maintenance   *store.Maintenance
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewGarbageCollector creates a new garbage collector.
func NewGarbageCollector(
	maintenance *store.Maintenance,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *GarbageCollector {
	return &GarbageCollector{
		maintenance:   maintenance,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic collection process.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	// Run immediately on start
	if err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.manualTrigger:
				gc.logger.Info("manual garbage collection triggered")
				if err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector.
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect runs one deduplication pass followed by one unreferenced
// cleanup. Dedup first: merging duplicates rewrites references, which
// can only shrink the unreferenced set.
func (gc *GarbageCollector) Collect(ctx context.Context) error {
	merged, err := gc.maintenance.DeduplicateRecords(ctx)
	if err != nil {
		return err
	}

	removed, err := gc.maintenance.CleanupUnreferenced(ctx)
	if err != nil {
		return err
	}

	if merged > 0 || removed > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("records_merged", merged),
			logger.Int("records_removed", removed))
	} else {
		gc.logger.Debug("no url records to garbage collect")
	}
	return nil
}
