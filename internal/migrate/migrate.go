// Package migrate upgrades legacy embedded-URL storage to the
// normalized urlIds shape and implements backup import/export. The
// schema migration runs once per process start behind a persisted flag;
// imports reuse the same normalization so a backup file (which stays in
// the legacy shape on purpose) can always be replayed.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

// Engine performs schema migration and backup import/export.
type Engine struct {
	db       *kv.DB
	urls     *store.URLStore
	groups   *store.GroupStore
	projects *store.ProjectStore
	logger   logger.Logger
}

// NewEngine creates the migration engine.
func NewEngine(db *kv.DB, urls *store.URLStore, groups *store.GroupStore, projects *store.ProjectStore, log logger.Logger) *Engine {
	return &Engine{
		db:       db,
		urls:     urls,
		groups:   groups,
		projects: projects,
		logger:   log,
	}
}

// Run migrates every legacy group and project to the normalized shape.
// Guarded by the urlsMigrationCompleted flag, so calling it on every
// cold start is safe: a completed migration is a no-op.
func (e *Engine) Run(ctx context.Context) error {
	data, found, err := e.db.Read(ctx, kv.KeyMigrationCompleted)
	if err != nil {
		return err
	}
	if found {
		var completed bool
		if err := json.Unmarshal(data, &completed); err == nil && completed {
			e.logger.Debug("url migration already completed, skipping")
			return nil
		}
	}

	e.logger.Info("migrating legacy embedded urls to normalized records")

	migratedGroups, err := e.migrateGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate domain groups: %w", err)
	}
	migratedProjects, err := e.migrateProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate projects: %w", err)
	}

	flag, err := json.Marshal(true)
	if err != nil {
		return err
	}
	if err := e.db.Write(ctx, map[string][]byte{kv.KeyMigrationCompleted: flag}); err != nil {
		return fmt.Errorf("failed to persist migration flag: %w", err)
	}

	e.logger.Info("url migration completed",
		logger.Int("groups", migratedGroups),
		logger.Int("projects", migratedProjects))
	return nil
}

func (e *Engine) migrateGroups(ctx context.Context) (int, error) {
	groups, err := e.groups.All(ctx)
	if err != nil {
		return 0, err
	}

	// id resolution happens outside the savedTabs lock: upserts mutate
	// the urls document, which has its own lock.
	resolved := make(map[string]map[string]string, len(groups)) // group id -> url -> record id
	for _, g := range groups {
		if len(g.URLs) == 0 {
			continue
		}
		ids := make(map[string]string, len(g.URLs))
		for _, legacy := range g.URLs {
			savedAt := legacy.SavedAt
			if savedAt == 0 {
				savedAt = g.SavedAt
			}
			record, err := e.urls.UpsertAt(ctx, legacy.URL, legacy.Title, legacy.FavIconURL, savedAt)
			if err != nil {
				return 0, err
			}
			ids[legacy.URL] = record.ID
		}
		resolved[g.ID] = ids
	}

	if len(resolved) == 0 {
		return 0, nil
	}

	migrated := 0
	err = e.groups.MutateAll(ctx, func(live []domain.DomainGroup) ([]domain.DomainGroup, bool, error) {
		migrated = 0
		changed := false
		for i := range live {
			g := &live[i]
			ids, ok := resolved[g.ID]
			if !ok || len(g.URLs) == 0 {
				continue
			}
			for _, legacy := range g.URLs {
				id, ok := ids[legacy.URL]
				if !ok {
					continue
				}
				if !g.HasURLID(id) {
					g.URLIDs = append(g.URLIDs, id)
				}
				if legacy.SubCategory != "" {
					if g.URLSubCategories == nil {
						g.URLSubCategories = make(map[string]string)
					}
					g.URLSubCategories[id] = legacy.SubCategory
				}
			}
			g.URLs = nil
			migrated++
			changed = true
		}
		return live, changed, nil
	})
	if err != nil {
		return 0, err
	}
	return migrated, nil
}

func (e *Engine) migrateProjects(ctx context.Context) (int, error) {
	projects, err := e.projects.All(ctx)
	if err != nil {
		return 0, err
	}

	resolved := make(map[string]map[string]string, len(projects))
	for _, p := range projects {
		if len(p.URLs) == 0 {
			continue
		}
		ids := make(map[string]string, len(p.URLs))
		for _, legacy := range p.URLs {
			savedAt := legacy.SavedAt
			if savedAt == 0 {
				savedAt = p.CreatedAt
			}
			record, err := e.urls.UpsertAt(ctx, legacy.URL, legacy.Title, legacy.FavIconURL, savedAt)
			if err != nil {
				return 0, err
			}
			ids[legacy.URL] = record.ID
		}
		resolved[p.ID] = ids
	}

	if len(resolved) == 0 {
		return 0, nil
	}

	migrated := 0
	err = e.projects.MutateAll(ctx, func(live []domain.Project) ([]domain.Project, bool, error) {
		migrated = 0
		changed := false
		for i := range live {
			p := &live[i]
			ids, ok := resolved[p.ID]
			if !ok || len(p.URLs) == 0 {
				continue
			}
			for _, legacy := range p.URLs {
				id, ok := ids[legacy.URL]
				if !ok {
					continue
				}
				if !p.HasURLID(id) {
					p.URLIDs = append(p.URLIDs, id)
				}
				if legacy.Notes != "" || legacy.Category != "" || legacy.SavedAt != 0 {
					if p.URLMeta == nil {
						p.URLMeta = make(map[string]domain.ProjectURLMeta)
					}
					p.URLMeta[id] = domain.ProjectURLMeta{
						Notes:    legacy.Notes,
						Category: legacy.Category,
						SavedAt:  legacy.SavedAt,
					}
				}
			}
			p.URLs = nil
			migrated++
			changed = true
		}
		return live, changed, nil
	})
	if err != nil {
		return 0, err
	}
	return migrated, nil
}
