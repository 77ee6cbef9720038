package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/types"
)

// Memory is an in-process story store used by the development profile and tests
type Memory struct {
	mu            sync.RWMutex
	stories       map[string]*types.Story
	programs      map[string]string
	beneficiaries map[string]string
	now           func() time.Time
}

func New() *Memory {
	return &Memory{
		stories:       make(map[string]*types.Story),
		programs:      make(map[string]string),
		beneficiaries: make(map[string]string),
		now:           time.Now,
	}
}

// AddProgram registers a program that stories may reference
func (m *Memory) AddProgram(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[id] = name
}

// AddBeneficiary registers a beneficiary that stories may reference
func (m *Memory) AddBeneficiary(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beneficiaries[id] = name
}

func (m *Memory) FindStoryByID(ctx context.Context, id string, withRelations bool) (*types.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.stories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	story := stored.Clone()
	if withRelations {
		m.resolve(story)
	}
	return story, nil
}

// resolve fills Program and Beneficiary; callers hold the lock
func (m *Memory) resolve(story *types.Story) {
	story.Program, story.Beneficiary = nil, nil
	if story.ProgramID != nil {
		if name, ok := m.programs[*story.ProgramID]; ok {
			story.Program = &types.Reference{ID: *story.ProgramID, Name: name}
		}
	}
	if story.BeneficiaryID != nil {
		if name, ok := m.beneficiaries[*story.BeneficiaryID]; ok {
			story.Beneficiary = &types.Reference{ID: *story.BeneficiaryID, Name: name}
		}
	}
}

func (m *Memory) SaveStory(ctx context.Context, story *types.Story) (*types.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next := story.Clone()
	next.Program, next.Beneficiary = nil, nil
	now := m.now().UTC()

	if story.Version == 0 {
		if next.ID == "" {
			next.ID = uuid.New().String()
		}
		if _, exists := m.stories[next.ID]; exists {
			return nil, storage.ErrVersionConflict
		}
		next.Version = 1
		next.ViewCount, next.ShareCount = 0, 0
		next.CreatedAt, next.UpdatedAt = now, now
		m.stories[next.ID] = next
		return next.Clone(), nil
	}

	current, ok := m.stories[next.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if current.Version != story.Version {
		return nil, storage.ErrVersionConflict
	}

	next.Version = current.Version + 1
	next.ViewCount, next.ShareCount = current.ViewCount, current.ShareCount
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = now
	m.stories[next.ID] = next
	return next.Clone(), nil
}

func (m *Memory) DeleteStory(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stories[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.stories, id)
	return nil
}

func (m *Memory) ListStoryIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.stories))
	for id := range m.stories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) IncrementViewCount(ctx context.Context, id string) error {
	_, err := m.increment(ctx, id, func(s *types.Story) *int64 { return &s.ViewCount })
	return err
}

func (m *Memory) IncrementShareCount(ctx context.Context, id string) (int64, error) {
	return m.increment(ctx, id, func(s *types.Story) *int64 { return &s.ShareCount })
}

func (m *Memory) increment(ctx context.Context, id string, counter func(*types.Story) *int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	story, ok := m.stories[id]
	if !ok {
		return 0, storage.ErrNotFound
	}
	c := counter(story)
	*c++
	return *c, nil
}

func (m *Memory) FindProgram(ctx context.Context, id string) (*types.Reference, error) {
	return m.findReference(ctx, m.programs, id)
}

func (m *Memory) FindBeneficiary(ctx context.Context, id string) (*types.Reference, error) {
	return m.findReference(ctx, m.beneficiaries, id)
}

func (m *Memory) findReference(ctx context.Context, set map[string]string, id string) (*types.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := set[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &types.Reference{ID: id, Name: name}, nil
}
