package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

// ProjectStore manages user-defined projects and their display order.
// Project names are unique case-insensitively. Unlike domain groups,
// projects may be empty; deleting a project never deletes UrlRecords.
type ProjectStore struct {
	db     *kv.DB
	urls   *URLStore
	logger logger.Logger
}

// NewProjectStore creates the project store.
func NewProjectStore(db *kv.DB, urls *URLStore, log logger.Logger) *ProjectStore {
	return &ProjectStore{
		db:     db,
		urls:   urls,
		logger: log,
	}
}

func decodeProjects(data []byte, found bool) ([]domain.Project, error) {
	if !found || len(data) == 0 {
		return nil, nil
	}
	var projects []domain.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmptyName
	}
	if len([]rune(trimmed)) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// All returns every project.
func (s *ProjectStore) All(ctx context.Context) ([]domain.Project, error) {
	data, found, err := s.db.Read(ctx, kv.KeyCustomProjects)
	if err != nil {
		return nil, err
	}
	return decodeProjects(data, found)
}

// Get returns one project by id.
func (s *ProjectStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	projects, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].ID == id {
			return &projects[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create adds a project. The name must be non-empty, within length
// bounds, and unique case-insensitively.
func (s *ProjectStore) Create(ctx context.Context, name, description string) (*domain.Project, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	var result domain.Project
	err := s.db.Update(ctx, kv.KeyCustomProjects, func(current []byte, found bool) ([]byte, bool, error) {
		projects, err := decodeProjects(current, found)
		if err != nil {
			return nil, false, err
		}
		for i := range projects {
			if strings.EqualFold(projects[i].Name, name) {
				return nil, false, ErrDuplicateName
			}
		}

		now := domain.NowMillis()
		result = domain.Project{
			ID:          uuid.NewString(),
			Name:        name,
			Description: description,
			URLIDs:      []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		projects = append(projects, result)
		next, err := json.Marshal(projects)
		return next, true, err
	})
	if err != nil {
		return nil, err
	}

	if err := s.appendToOrder(ctx, result.ID); err != nil {
		s.logger.Warn("failed to append project to display order",
			logger.String("project_id", result.ID),
			logger.Error(err))
	}
	return &result, nil
}

// EnsureDefault materializes the default project if no project exists.
// Called the first time the project view is used.
func (s *ProjectStore) EnsureDefault(ctx context.Context) (*domain.Project, error) {
	projects, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(projects) > 0 {
		return &projects[0], nil
	}
	return s.Create(ctx, domain.DefaultProjectName, "")
}

// Rename changes a project's name, enforcing the same uniqueness rule as
// Create. Renaming a project to its own name (case change only) is
// allowed.
func (s *ProjectStore) Rename(ctx context.Context, id, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	name = strings.TrimSpace(name)

	return s.Mutate(ctx, id, func(p *domain.Project, all []domain.Project) (bool, error) {
		for i := range all {
			if all[i].ID != id && strings.EqualFold(all[i].Name, name) {
				return false, ErrDuplicateName
			}
		}
		if p.Name == name {
			return false, nil
		}
		p.Name = name
		p.UpdatedAt = domain.NowMillis()
		return true, nil
	})
}

// Delete removes a project and its display-order entry. Referenced
// UrlRecords are left for the garbage collector.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	err := s.db.Update(ctx, kv.KeyCustomProjects, func(current []byte, found bool) ([]byte, bool, error) {
		projects, err := decodeProjects(current, found)
		if err != nil {
			return nil, false, err
		}
		kept := projects[:0]
		deleted := false
		for _, p := range projects {
			if p.ID == id {
				deleted = true
				continue
			}
			kept = append(kept, p)
		}
		if !deleted {
			return nil, false, nil
		}
		next, err := json.Marshal(kept)
		return next, true, err
	})
	if err != nil {
		return err
	}

	return s.db.Update(ctx, kv.KeyCustomProjectOrder, func(current []byte, found bool) ([]byte, bool, error) {
		var order []string
		if found && len(current) > 0 {
			if err := json.Unmarshal(current, &order); err != nil {
				return nil, false, fmt.Errorf("failed to decode project order: %w", err)
			}
		}
		kept := order[:0]
		changed := false
		for _, existing := range order {
			if existing == id {
				changed = true
				continue
			}
			kept = append(kept, existing)
		}
		if !changed {
			return nil, false, nil
		}
		next, err := json.Marshal(kept)
		return next, true, err
	})
}

// AddURL saves a URL into a project with optional notes and category.
// The record is shared with any domain group holding the same URL.
func (s *ProjectStore) AddURL(ctx context.Context, projectID, rawURL, title, favIconURL, notes, category string) error {
	record, err := s.urls.Upsert(ctx, rawURL, title, favIconURL)
	if err != nil {
		return fmt.Errorf("failed to upsert url record: %w", err)
	}

	err = s.Mutate(ctx, projectID, func(p *domain.Project, _ []domain.Project) (bool, error) {
		changed := false
		if !p.HasURLID(record.ID) {
			p.URLIDs = append(p.URLIDs, record.ID)
			changed = true
		}
		if notes != "" || category != "" {
			if p.URLMeta == nil {
				p.URLMeta = make(map[string]domain.ProjectURLMeta)
			}
			p.URLMeta[record.ID] = domain.ProjectURLMeta{
				Notes:    notes,
				Category: category,
				SavedAt:  record.SavedAt,
			}
			changed = true
		}
		if changed {
			p.UpdatedAt = domain.NowMillis()
		}
		return changed, nil
	})
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("add url: project not found",
			logger.String("project_id", projectID))
		return nil
	}
	return err
}

// RemoveURL drops a URL reference from a project. An emptied project is
// a valid terminal state, no cascade.
func (s *ProjectStore) RemoveURL(ctx context.Context, projectID, rawURL string) error {
	record, found, err := s.urls.FindByURL(ctx, rawURL)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	err = s.Mutate(ctx, projectID, func(p *domain.Project, _ []domain.Project) (bool, error) {
		if !p.RemoveURLID(record.ID) {
			return false, nil
		}
		p.UpdatedAt = domain.NowMillis()
		return true, nil
	})
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("remove url: project not found",
			logger.String("project_id", projectID))
		return nil
	}
	return err
}

// Mutate applies fn to one project under the customProjects lock. fn
// also receives the full array for cross-project checks.
func (s *ProjectStore) Mutate(ctx context.Context, id string, fn func(p *domain.Project, all []domain.Project) (bool, error)) error {
	return s.db.Update(ctx, kv.KeyCustomProjects, func(current []byte, found bool) ([]byte, bool, error) {
		projects, err := decodeProjects(current, found)
		if err != nil {
			return nil, false, err
		}
		for i := range projects {
			if projects[i].ID != id {
				continue
			}
			changed, err := fn(&projects[i], projects)
			if err != nil || !changed {
				return nil, false, err
			}
			next, err := json.Marshal(projects)
			return next, true, err
		}
		return nil, false, ErrNotFound
	})
}

// MutateAll applies fn to the whole project array under the lock.
func (s *ProjectStore) MutateAll(ctx context.Context, fn func(projects []domain.Project) ([]domain.Project, bool, error)) error {
	return s.db.Update(ctx, kv.KeyCustomProjects, func(current []byte, found bool) ([]byte, bool, error) {
		projects, err := decodeProjects(current, found)
		if err != nil {
			return nil, false, err
		}
		updated, changed, err := fn(projects)
		if err != nil || !changed {
			return nil, false, err
		}
		next, err := json.Marshal(updated)
		return next, true, err
	})
}

// Order returns the display order, appending any project ids the order
// document does not know yet (created before ordering existed).
func (s *ProjectStore) Order(ctx context.Context) ([]string, error) {
	docs, err := s.db.ReadMany(ctx, kv.KeyCustomProjectOrder, kv.KeyCustomProjects)
	if err != nil {
		return nil, err
	}

	var order []string
	if data, ok := docs[kv.KeyCustomProjectOrder]; ok {
		if err := json.Unmarshal(data, &order); err != nil {
			return nil, fmt.Errorf("failed to decode project order: %w", err)
		}
	}

	projects, err := decodeProjects(docs[kv.KeyCustomProjects], docs[kv.KeyCustomProjects] != nil)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(order))
	for _, id := range order {
		known[id] = true
	}
	for _, p := range projects {
		if !known[p.ID] {
			order = append(order, p.ID)
		}
	}
	return order, nil
}

// SetOrder replaces the display order wholesale.
func (s *ProjectStore) SetOrder(ctx context.Context, order []string) error {
	return s.db.Update(ctx, kv.KeyCustomProjectOrder, func(_ []byte, _ bool) ([]byte, bool, error) {
		next, err := json.Marshal(order)
		return next, true, err
	})
}

func (s *ProjectStore) appendToOrder(ctx context.Context, id string) error {
	return s.db.Update(ctx, kv.KeyCustomProjectOrder, func(current []byte, found bool) ([]byte, bool, error) {
		var order []string
		if found && len(current) > 0 {
			if err := json.Unmarshal(current, &order); err != nil {
				return nil, false, fmt.Errorf("failed to decode project order: %w", err)
			}
		}
		for _, existing := range order {
			if existing == id {
				return nil, false, nil
			}
		}
		order = append(order, id)
		next, err := json.Marshal(order)
		return next, true, err
	})
}
