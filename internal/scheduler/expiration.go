package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

// ExpirationSweeper drops saved URLs once they are older than the
// user-configured TTL, removing emptied groups through the same cascade
// as a manual delete and reclaiming the records the expired references
// leave behind. The TTL choice is re-read from user settings on every
// tick, so a settings change takes effect without restart.
type ExpirationSweeper struct {
	db          *kv.DB
	maintenance *store.Maintenance
	logger      logger.Logger
	interval    time.Duration
	stopCh      chan struct{}
}

// NewExpirationSweeper creates the sweeper.
func NewExpirationSweeper(
	db *kv.DB,
	maintenance *store.Maintenance,
	log logger.Logger,
	interval time.Duration,
) *ExpirationSweeper {
	return &ExpirationSweeper{
		db:          db,
		maintenance: maintenance,
		logger:      log,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (es *ExpirationSweeper) Start(ctx context.Context) error {
	if err := es.Sweep(ctx); err != nil {
		es.logger.Warn("initial expiration sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(es.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := es.Sweep(ctx); err != nil {
					es.logger.Error("expiration sweep failed",
						logger.Error(err))
				}
			case <-es.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper.
func (es *ExpirationSweeper) Stop() {
	close(es.stopCh)
}

// Sweep runs one expiration pass with the currently configured TTL.
// A "never" or unknown TTL disables the sweep.
func (es *ExpirationSweeper) Sweep(ctx context.Context) error {
	ttl, err := es.currentTTL(ctx)
	if err != nil {
		return err
	}

	duration, enabled := ttl.Duration()
	if !enabled {
		es.logger.Debug("expiration disabled, skipping sweep")
		return nil
	}

	cutoff := domain.NowMillis() - duration.Milliseconds()
	urlsRemoved, groupsRemoved, err := es.maintenance.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	// Expiring references orphans the records behind them; reclaim the
	// ones already past the cleanup grace instead of leaving them for
	// the next garbage collection.
	recordsRemoved := 0
	if urlsRemoved > 0 {
		recordsRemoved, err = es.maintenance.CleanupUnreferenced(ctx)
		if err != nil {
			return err
		}
	}

	if urlsRemoved > 0 {
		es.logger.Info("expiration sweep completed",
			logger.String("ttl", string(ttl)),
			logger.Int("urls_removed", urlsRemoved),
			logger.Int("groups_removed", groupsRemoved),
			logger.Int("records_removed", recordsRemoved))
	} else {
		es.logger.Debug("no saved urls to expire")
	}
	return nil
}

func (es *ExpirationSweeper) currentTTL(ctx context.Context) (domain.ExpirationTTL, error) {
	data, found, err := es.db.Read(ctx, kv.KeyUserSettings)
	if err != nil {
		return domain.TTLNever, err
	}
	if !found {
		return domain.TTLNever, nil
	}
	var settings domain.UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		es.logger.Warn("failed to decode user settings, skipping sweep",
			logger.Error(err))
		return domain.TTLNever, nil
	}
	if settings.AutoDeletePeriod == "" {
		return domain.TTLNever, nil
	}
	return settings.AutoDeletePeriod, nil
}
