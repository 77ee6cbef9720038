package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/storage/memory"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})

	t.Cleanup(func() {
		redisClient.Close()
		mr.Close()
	})

	return redisClient, mr
}

func seed(t *testing.T, store *memory.Memory) *types.Story {
	t.Helper()
	story, err := store.SaveStory(context.Background(), &types.Story{
		Title:      types.Localized{"en": "t", "rw": "t"},
		Body:       types.Localized{"en": "b", "rw": "b"},
		AuthorName: "Aline",
		AuthorRole: types.AuthorRoleStaff,
		Media:      []media.Item{},
	})
	require.NoError(t, err)
	return story
}

func TestFindStoryByIDCachesAndInvalidates(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	store := memory.New()
	c := NewCacheService(store, redisClient, 0)
	ctx := context.Background()
	story := seed(t, store)

	first, err := c.FindStoryByID(ctx, story.ID, false)
	require.NoError(t, err)
	assert.True(t, mr.Exists(fmt.Sprintf(StoryKey, story.ID)))

	// a change made behind the cache's back stays invisible until invalidation
	first.AuthorName = "Changed"
	_, err = store.SaveStory(ctx, first)
	require.NoError(t, err)

	cached, err := c.FindStoryByID(ctx, story.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Aline", cached.AuthorName)

	cached.AuthorName = "Through cache"
	_, err = c.SaveStory(ctx, cached)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)
	assert.False(t, mr.Exists(fmt.Sprintf(StoryKey, story.ID)), "a conflict drops the stale copy")

	fresh, err := c.FindStoryByID(ctx, story.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Changed", fresh.AuthorName)
	assert.Equal(t, 2, fresh.Version)
}

func TestCountersAndDelete(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	store := memory.New()
	c := NewCacheService(store, redisClient, 0)
	ctx := context.Background()
	story := seed(t, store)

	_, err := c.FindStoryByID(ctx, story.ID, true)
	require.NoError(t, err)
	require.True(t, mr.Exists(fmt.Sprintf(StoryFullKey, story.ID)))

	require.NoError(t, c.IncrementViewCount(ctx, story.ID))
	assert.True(t, mr.Exists(fmt.Sprintf(StoryFullKey, story.ID)), "views keep the cached copy")

	viewed, err := c.FindStoryByID(ctx, story.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), viewed.ViewCount)

	shares, err := c.IncrementShareCount(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), shares)
	assert.False(t, mr.Exists(fmt.Sprintf(StoryFullKey, story.ID)))

	shared, err := c.FindStoryByID(ctx, story.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), shared.ViewCount)
	assert.Equal(t, int64(1), shared.ShareCount)

	require.NoError(t, c.DeleteStory(ctx, story.ID))
	_, err = c.FindStoryByID(ctx, story.ID, true)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReferencesAreCached(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	store := memory.New()
	store.AddProgram("prog-1", "School feeding")
	c := NewCacheService(store, redisClient, 0)
	ctx := context.Background()

	ref, err := c.FindProgram(ctx, "prog-1")
	require.NoError(t, err)
	assert.Equal(t, "School feeding", ref.Name)
	assert.True(t, mr.Exists(fmt.Sprintf(ProgramKey, "prog-1")))

	_, err = c.FindBeneficiary(ctx, "ben-404")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, mr.Exists(fmt.Sprintf(BeneficiaryKey, "ben-404")))
}
