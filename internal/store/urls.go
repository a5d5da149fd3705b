// Package store implements the persisted record and collection stores:
// canonical UrlRecords, DomainGroups, Projects, and the maintenance
// operations (garbage collection, deduplication, expiration) that keep
// them consistent. All access goes through kv.DB; nothing touches the
// raw document store directly.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

// URLStore is the canonical deduplicated UrlRecord store. The URL string
// is the natural key: upserting the same URL twice never creates two
// records.
type URLStore struct {
	db     *kv.DB
	logger logger.Logger
}

// NewURLStore creates the UrlRecord store.
func NewURLStore(db *kv.DB, log logger.Logger) *URLStore {
	return &URLStore{
		db:     db,
		logger: log,
	}
}

func decodeRecords(data []byte, found bool) ([]domain.UrlRecord, error) {
	if !found || len(data) == 0 {
		return nil, nil
	}
	var records []domain.UrlRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode url records: %w", err)
	}
	return records, nil
}

// All returns every UrlRecord.
func (s *URLStore) All(ctx context.Context) ([]domain.UrlRecord, error) {
	data, found, err := s.db.Read(ctx, kv.KeyURLs)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data, found)
}

// FindByURL looks a record up by its natural key.
func (s *URLStore) FindByURL(ctx context.Context, rawURL string) (*domain.UrlRecord, bool, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range records {
		if records[i].URL == rawURL {
			return &records[i], true, nil
		}
	}
	return nil, false, nil
}

// GetByIDs returns the records for ids, preserving input order.
// Unknown ids are skipped.
func (s *URLStore) GetByIDs(ctx context.Context, ids []string) ([]domain.UrlRecord, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.UrlRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	result := make([]domain.UrlRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			result = append(result, r)
		}
	}
	return result, nil
}

// Upsert inserts a record for rawURL, or refreshes title, favicon and
// savedAt in place when one already exists. Returns the stored record.
func (s *URLStore) Upsert(ctx context.Context, rawURL, title, favIconURL string) (*domain.UrlRecord, error) {
	return s.UpsertAt(ctx, rawURL, title, favIconURL, domain.NowMillis())
}

// UpsertAt is Upsert with an explicit timestamp, used by the migration
// engine to preserve original save dates.
func (s *URLStore) UpsertAt(ctx context.Context, rawURL, title, favIconURL string, savedAt int64) (*domain.UrlRecord, error) {
	var result domain.UrlRecord

	err := s.db.Update(ctx, kv.KeyURLs, func(current []byte, found bool) ([]byte, bool, error) {
		records, err := decodeRecords(current, found)
		if err != nil {
			return nil, false, err
		}

		updated := false
		for i := range records {
			if records[i].URL != rawURL {
				continue
			}
			if title != "" {
				records[i].Title = title
			}
			if favIconURL != "" {
				records[i].FavIconURL = favIconURL
			}
			records[i].SavedAt = savedAt
			result = records[i]
			updated = true
			break
		}

		if !updated {
			result = domain.UrlRecord{
				ID:         uuid.NewString(),
				URL:        rawURL,
				Title:      title,
				FavIconURL: favIconURL,
				SavedAt:    savedAt,
			}
			records = append(records, result)
		}

		next, err := json.Marshal(records)
		return next, true, err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// IsReferenced reports whether any DomainGroup or Project references id.
func (s *URLStore) IsReferenced(ctx context.Context, id string) (bool, error) {
	refs, err := referencedIDs(ctx, s.db)
	if err != nil {
		return false, err
	}
	return refs[id], nil
}

// Delete removes the record. It refuses (returns false, no error) while
// any collection still references the id.
func (s *URLStore) Delete(ctx context.Context, id string) (bool, error) {
	referenced, err := s.IsReferenced(ctx, id)
	if err != nil {
		return false, err
	}
	if referenced {
		s.logger.Debug("refusing to delete referenced url record",
			logger.String("id", id))
		return false, nil
	}

	deleted := false
	err = s.db.Update(ctx, kv.KeyURLs, func(current []byte, found bool) ([]byte, bool, error) {
		records, err := decodeRecords(current, found)
		if err != nil {
			return nil, false, err
		}
		kept := records[:0]
		for _, r := range records {
			if r.ID == id {
				deleted = true
				continue
			}
			kept = append(kept, r)
		}
		if !deleted {
			return nil, false, nil
		}
		next, err := json.Marshal(kept)
		return next, true, err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// referencedIDs collects every UrlRecord id referenced by a DomainGroup
// urlIds/urlSubCategories entry or a Project urlIds entry.
func referencedIDs(ctx context.Context, db *kv.DB) (map[string]bool, error) {
	docs, err := db.ReadMany(ctx, kv.KeySavedTabs, kv.KeyCustomProjects)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]bool)

	if data, ok := docs[kv.KeySavedTabs]; ok {
		var groups []domain.DomainGroup
		if err := json.Unmarshal(data, &groups); err != nil {
			return nil, fmt.Errorf("failed to decode domain groups: %w", err)
		}
		for _, g := range groups {
			for _, id := range g.URLIDs {
				refs[id] = true
			}
			for id := range g.URLSubCategories {
				refs[id] = true
			}
		}
	}

	if data, ok := docs[kv.KeyCustomProjects]; ok {
		var projects []domain.Project
		if err := json.Unmarshal(data, &projects); err != nil {
			return nil, fmt.Errorf("failed to decode projects: %w", err)
		}
		for _, p := range projects {
			for _, id := range p.URLIDs {
				refs[id] = true
			}
			for id := range p.URLMeta {
				refs[id] = true
			}
		}
	}

	return refs, nil
}
