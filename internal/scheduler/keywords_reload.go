package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/sources/keywords"
)

// KeywordsReloader handles periodic reloading of the default keyword
// rule pack from keywords.yaml.
type KeywordsReloader struct {
	loader   *keywords.Loader
	pack     *keywords.Pack
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewKeywordsReloader creates a new keyword pack reloader.
func NewKeywordsReloader(
	rulesFile string,
	pack *keywords.Pack,
	log logger.Logger,
	interval time.Duration,
) *KeywordsReloader {
	return &KeywordsReloader{
		loader:   keywords.NewLoader(rulesFile),
		pack:     pack,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start loads the pack immediately, then refreshes it on the interval.
func (kr *KeywordsReloader) Start(ctx context.Context) error {
	if err := kr.Reload(); err != nil {
		return fmt.Errorf("initial keyword pack load failed: %w", err)
	}

	ticker := time.NewTicker(kr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := kr.Reload(); err != nil {
					kr.logger.Error("failed to reload keyword pack",
						logger.Error(err))
				}
			case <-kr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader.
func (kr *KeywordsReloader) Stop() {
	close(kr.stopCh)
}

// Reload loads keywords.yaml and swaps the pack contents.
func (kr *KeywordsReloader) Reload() error {
	config, err := kr.loader.Load()
	if err != nil {
		return err
	}
	kr.pack.Update(config)
	kr.logger.Info("keyword pack loaded",
		logger.Int("domains", len(config)))
	return nil
}
