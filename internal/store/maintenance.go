package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

// CleanupGrace protects records saved moments ago: a save upserts the
// record before appending its reference, so a cleanup running between
// the two steps would otherwise collect the brand-new record.
const CleanupGrace = time.Minute

// Maintenance bundles the reclamation operations: unreferenced-record
// cleanup, duplicate-record merging, and age-based expiration. All three
// are idempotent and safe to run at any time.
type Maintenance struct {
	db       *kv.DB
	groups   *GroupStore
	projects *ProjectStore
	urls     *URLStore
	logger   logger.Logger
}

// NewMaintenance creates the maintenance operations.
func NewMaintenance(db *kv.DB, groups *GroupStore, projects *ProjectStore, urls *URLStore, log logger.Logger) *Maintenance {
	return &Maintenance{
		db:       db,
		groups:   groups,
		projects: projects,
		urls:     urls,
		logger:   log,
	}
}

// CleanupUnreferenced deletes every UrlRecord no DomainGroup or Project
// references. Returns the number of records removed.
func (m *Maintenance) CleanupUnreferenced(ctx context.Context) (int, error) {
	removed := 0

	err := m.db.Update(ctx, kv.KeyURLs, func(current []byte, found bool) ([]byte, bool, error) {
		records, err := decodeRecords(current, found)
		if err != nil {
			return nil, false, err
		}
		if len(records) == 0 {
			return nil, false, nil
		}

		refs, err := referencedIDs(ctx, m.db)
		if err != nil {
			return nil, false, err
		}

		graceCutoff := domain.NowMillis() - CleanupGrace.Milliseconds()
		kept := records[:0]
		for _, r := range records {
			if refs[r.ID] || r.SavedAt > graceCutoff {
				kept = append(kept, r)
				continue
			}
			removed++
		}
		if removed == 0 {
			return nil, false, nil
		}
		next, err := json.Marshal(kept)
		return next, true, err
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		m.logger.Info("cleaned up unreferenced url records",
			logger.Int("removed", removed))
	}
	return removed, nil
}

// DeduplicateRecords merges records sharing one URL (possible after
// independent inserts raced before any dedup pass). The record with the
// greatest savedAt survives; every reference to a losing id is rewritten
// to the survivor before the losers are deleted.
func (m *Maintenance) DeduplicateRecords(ctx context.Context) (int, error) {
	records, err := m.urls.All(ctx)
	if err != nil {
		return 0, err
	}

	// losing id -> surviving id
	rewrites := make(map[string]string)
	survivors := make(map[string]domain.UrlRecord)
	for _, r := range records {
		winner, seen := survivors[r.URL]
		if !seen {
			survivors[r.URL] = r
			continue
		}
		if r.SavedAt > winner.SavedAt {
			rewrites[winner.ID] = r.ID
			survivors[r.URL] = r
		} else {
			rewrites[r.ID] = winner.ID
		}
	}
	// Collapse chains left by three or more records per URL.
	for loser, winner := range rewrites {
		for {
			again, ok := rewrites[winner]
			if !ok {
				break
			}
			winner = again
		}
		rewrites[loser] = winner
	}

	if len(rewrites) == 0 {
		return 0, nil
	}

	if err := m.rewriteGroupRefs(ctx, rewrites); err != nil {
		return 0, err
	}
	if err := m.rewriteProjectRefs(ctx, rewrites); err != nil {
		return 0, err
	}

	err = m.db.Update(ctx, kv.KeyURLs, func(current []byte, found bool) ([]byte, bool, error) {
		all, err := decodeRecords(current, found)
		if err != nil {
			return nil, false, err
		}
		kept := all[:0]
		for _, r := range all {
			if _, losing := rewrites[r.ID]; losing {
				continue
			}
			kept = append(kept, r)
		}
		next, err := json.Marshal(kept)
		return next, true, err
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info("deduplicated url records",
		logger.Int("merged", len(rewrites)))
	return len(rewrites), nil
}

func (m *Maintenance) rewriteGroupRefs(ctx context.Context, rewrites map[string]string) error {
	return m.groups.MutateAll(ctx, func(groups []domain.DomainGroup) ([]domain.DomainGroup, bool, error) {
		changed := false
		for i := range groups {
			g := &groups[i]
			ids := make([]string, 0, len(g.URLIDs))
			seen := make(map[string]bool, len(g.URLIDs))
			for _, id := range g.URLIDs {
				if winner, ok := rewrites[id]; ok {
					id = winner
					changed = true
				}
				if seen[id] {
					changed = true
					continue
				}
				seen[id] = true
				ids = append(ids, id)
			}
			g.URLIDs = ids

			for loser, winner := range rewrites {
				if sub, ok := g.URLSubCategories[loser]; ok {
					if _, taken := g.URLSubCategories[winner]; !taken {
						if g.URLSubCategories == nil {
							g.URLSubCategories = make(map[string]string)
						}
						g.URLSubCategories[winner] = sub
					}
					delete(g.URLSubCategories, loser)
					changed = true
				}
			}
		}
		return groups, changed, nil
	})
}

func (m *Maintenance) rewriteProjectRefs(ctx context.Context, rewrites map[string]string) error {
	return m.projects.MutateAll(ctx, func(projects []domain.Project) ([]domain.Project, bool, error) {
		changed := false
		for i := range projects {
			p := &projects[i]
			ids := make([]string, 0, len(p.URLIDs))
			seen := make(map[string]bool, len(p.URLIDs))
			for _, id := range p.URLIDs {
				if winner, ok := rewrites[id]; ok {
					id = winner
					changed = true
				}
				if seen[id] {
					changed = true
					continue
				}
				seen[id] = true
				ids = append(ids, id)
			}
			p.URLIDs = ids

			for loser, winner := range rewrites {
				if meta, ok := p.URLMeta[loser]; ok {
					if _, taken := p.URLMeta[winner]; !taken {
						p.URLMeta[winner] = meta
					}
					delete(p.URLMeta, loser)
					changed = true
				}
			}
		}
		return projects, changed, nil
	})
}

// ExpireOlderThan drops every group URL entry whose record savedAt
// (falling back to the group's savedAt) is older than cutoff, cascading
// emptied groups through the same shadow-persisting removal as a manual
// delete: shadows are made durable before the write that drops a group.
// Returns removed URL references and removed groups.
func (m *Maintenance) ExpireOlderThan(ctx context.Context, cutoff int64) (int, int, error) {
	records, err := m.urls.All(ctx)
	if err != nil {
		return 0, 0, err
	}
	savedAt := make(map[string]int64, len(records))
	for _, r := range records {
		savedAt[r.ID] = r.SavedAt
	}

	expired := func(g *domain.DomainGroup, id string) bool {
		ts, ok := savedAt[id]
		if !ok || ts == 0 {
			ts = g.SavedAt
		}
		return ts < cutoff
	}

	// Shadow the category configuration of every group this pass will
	// empty before the write that removes it.
	groups, err := m.groups.All(ctx)
	if err != nil {
		return 0, 0, err
	}
	shadowed := make(map[string]bool)
	for i := range groups {
		g := &groups[i]
		if len(g.URLIDs) == 0 {
			continue
		}
		doomed := true
		for _, id := range g.URLIDs {
			if !expired(g, id) {
				doomed = false
				break
			}
		}
		if !doomed {
			continue
		}
		if err := m.groups.persistShadows(ctx, g); err != nil {
			return 0, 0, err
		}
		shadowed[g.ID] = true
	}

	removedURLs := 0
	removedGroups := 0

	err = m.groups.MutateAll(ctx, func(groups []domain.DomainGroup) ([]domain.DomainGroup, bool, error) {
		removedURLs = 0
		removedGroups = 0
		changed := false

		kept := groups[:0]
		for _, g := range groups {
			var keep []string
			for _, id := range g.URLIDs {
				if !expired(&g, id) {
					keep = append(keep, id)
				}
			}
			if len(keep) == len(g.URLIDs) {
				kept = append(kept, g)
				continue
			}
			// Only groups shadowed above may be dropped; one that
			// would empty now changed under us and waits for the
			// next pass.
			if len(keep) == 0 && !shadowed[g.ID] {
				kept = append(kept, g)
				continue
			}

			for _, id := range g.URLIDs {
				if expired(&g, id) {
					delete(g.URLSubCategories, id)
					removedURLs++
				}
			}
			changed = true
			if len(keep) == 0 {
				removedGroups++
				continue
			}
			g.URLIDs = keep
			kept = append(kept, g)
		}
		return kept, changed, nil
	})
	if err != nil {
		return 0, 0, err
	}

	if removedURLs > 0 {
		m.logger.Info("expired saved urls",
			logger.Int("urls_removed", removedURLs),
			logger.Int("groups_removed", removedGroups))
	}
	return removedURLs, removedGroups, nil
}
