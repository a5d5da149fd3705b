package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

// SettingsStore reads and writes the flat user settings document.
type SettingsStore struct {
	db     *kv.DB
	logger logger.Logger
}

func NewSettingsStore(db *kv.DB, log logger.Logger) *SettingsStore {
	return &SettingsStore{db: db, logger: log}
}

// Get returns the current settings, falling back to defaults when the
// document does not exist yet.
func (s *SettingsStore) Get(ctx context.Context) (domain.UserSettings, error) {
	settings := domain.DefaultUserSettings()

	data, found, err := s.db.Read(ctx, kv.KeyUserSettings)
	if err != nil {
		return settings, err
	}
	if !found || len(data) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return domain.DefaultUserSettings(), fmt.Errorf("failed to decode user settings: %w", err)
	}
	if !domain.ValidTTL(settings.AutoDeletePeriod) {
		s.logger.Warn("unknown auto delete period, treating as never",
			logger.String("value", string(settings.AutoDeletePeriod)))
		settings.AutoDeletePeriod = domain.TTLNever
	}
	return settings, nil
}

// Put replaces the settings document. Unknown auto-delete periods are
// rejected so a typo cannot silently disable or misconfigure expiration.
func (s *SettingsStore) Put(ctx context.Context, settings domain.UserSettings) error {
	if !domain.ValidTTL(settings.AutoDeletePeriod) {
		return fmt.Errorf("%w: unknown auto delete period %q", ErrInvalidSettings, settings.AutoDeletePeriod)
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode user settings: %w", err)
	}
	return s.db.Write(ctx, map[string][]byte{kv.KeyUserSettings: data})
}
