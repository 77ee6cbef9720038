package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/types"
)

// CacheService wraps storage with Redis caching
type CacheService struct {
	storage  storage.Storage
	redis    *redis.Client
	storyTTL time.Duration
}

var _ storage.Storage = (*CacheService)(nil)

// NewCacheService creates a new cache service. A non-positive ttl uses StoryCacheDuration.
func NewCacheService(storage storage.Storage, redisClient *redis.Client, ttl time.Duration) *CacheService {
	if ttl <= 0 {
		ttl = StoryCacheDuration
	}
	return &CacheService{
		storage:  storage,
		redis:    redisClient,
		storyTTL: ttl,
	}
}

// Cache key patterns
const (
	StoryKey       = "story:%s"       // story:storyID
	StoryFullKey   = "story:full:%s"  // story:full:storyID, with program and beneficiary resolved
	ProgramKey     = "program:%s"     // program:programID
	BeneficiaryKey = "beneficiary:%s" // beneficiary:beneficiaryID
)

// Cache durations
const (
	StoryCacheDuration     = 10 * time.Minute // Individual stories
	ReferenceCacheDuration = 5 * time.Minute  // Programs and beneficiaries rarely change
)

func storyKey(id string, withRelations bool) string {
	if withRelations {
		return fmt.Sprintf(StoryFullKey, id)
	}
	return fmt.Sprintf(StoryKey, id)
}

// FindStoryByID returns the cached story or fetches it from the store
func (c *CacheService) FindStoryByID(ctx context.Context, id string, withRelations bool) (*types.Story, error) {
	key := storyKey(id, withRelations)

	// Try cache first
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var story types.Story
		if err := json.Unmarshal([]byte(cached), &story); err == nil {
			return &story, nil
		}
	}

	// Cache miss - fetch from database
	story, err := c.storage.FindStoryByID(ctx, id, withRelations)
	if err != nil {
		return nil, err
	}

	// Cache the result
	data, _ := json.Marshal(story)
	c.redis.Set(ctx, key, data, c.storyTTL)

	return story, nil
}

// InvalidateStory clears every cached form of a story
func (c *CacheService) InvalidateStory(ctx context.Context, id string) {
	c.redis.Del(ctx, fmt.Sprintf(StoryKey, id), fmt.Sprintf(StoryFullKey, id))
}

// SaveStory writes through and drops the cached copies, including after a
// version conflict so the retry reads the current row.
func (c *CacheService) SaveStory(ctx context.Context, story *types.Story) (*types.Story, error) {
	saved, err := c.storage.SaveStory(ctx, story)
	if story.ID != "" {
		c.InvalidateStory(ctx, story.ID)
	}
	if err != nil {
		return nil, err
	}
	if saved.ID != story.ID {
		c.InvalidateStory(ctx, saved.ID)
	}
	return saved, nil
}

func (c *CacheService) DeleteStory(ctx context.Context, id string) error {
	err := c.storage.DeleteStory(ctx, id)
	c.InvalidateStory(ctx, id)
	return err
}

func (c *CacheService) ListStoryIDs(ctx context.Context) ([]string, error) {
	return c.storage.ListStoryIDs(ctx)
}

// IncrementViewCount leaves cached copies in place. Every read records a view, so
// evicting here would empty the cache on each hit; cached view counts lag by at
// most the story TTL.
func (c *CacheService) IncrementViewCount(ctx context.Context, id string) error {
	return c.storage.IncrementViewCount(ctx, id)
}

func (c *CacheService) IncrementShareCount(ctx context.Context, id string) (int64, error) {
	count, err := c.storage.IncrementShareCount(ctx, id)
	if err == nil {
		c.InvalidateStory(ctx, id)
	}
	return count, err
}

func (c *CacheService) FindProgram(ctx context.Context, id string) (*types.Reference, error) {
	return c.cachedReference(ctx, fmt.Sprintf(ProgramKey, id), func() (*types.Reference, error) {
		return c.storage.FindProgram(ctx, id)
	})
}

func (c *CacheService) FindBeneficiary(ctx context.Context, id string) (*types.Reference, error) {
	return c.cachedReference(ctx, fmt.Sprintf(BeneficiaryKey, id), func() (*types.Reference, error) {
		return c.storage.FindBeneficiary(ctx, id)
	})
}

func (c *CacheService) cachedReference(ctx context.Context, key string, load func() (*types.Reference, error)) (*types.Reference, error) {
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var ref types.Reference
		if err := json.Unmarshal([]byte(cached), &ref); err == nil {
			return &ref, nil
		}
	}

	ref, err := load()
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(ref)
	c.redis.Set(ctx, key, data, ReferenceCacheDuration)

	return ref, nil
}
