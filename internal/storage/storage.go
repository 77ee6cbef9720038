package storage

import (
	"context"
	"errors"

	"github.com/princekumarofficial/impact-stories/internal/types"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// Storage persists stories together with their inline media list.
//
// SaveStory inserts when Version is 0 and otherwise performs a compare-and-swap on
// Version, returning ErrVersionConflict when the stored version moved on. View and
// share counters are owned by the Increment methods and are never written by SaveStory.
type Storage interface {
	FindStoryByID(ctx context.Context, id string, withRelations bool) (*types.Story, error)
	SaveStory(ctx context.Context, story *types.Story) (*types.Story, error)
	DeleteStory(ctx context.Context, id string) error
	ListStoryIDs(ctx context.Context) ([]string, error)
	IncrementViewCount(ctx context.Context, id string) error
	IncrementShareCount(ctx context.Context, id string) (int64, error)

	ReferenceStore
}

// ReferenceStore resolves the external aggregates a story may point at
type ReferenceStore interface {
	FindProgram(ctx context.Context, id string) (*types.Reference, error)
	FindBeneficiary(ctx context.Context, id string) (*types.Reference, error)
}
