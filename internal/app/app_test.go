package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/impact-stories/internal/cache"
	"github.com/princekumarofficial/impact-stories/internal/config"
	"github.com/princekumarofficial/impact-stories/internal/events"
	mediasvc "github.com/princekumarofficial/impact-stories/internal/services/media"
	"github.com/princekumarofficial/impact-stories/internal/storage/memory"
	"github.com/princekumarofficial/impact-stories/internal/types"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Storage:     config.Driver{Driver: DriverMemory},
		ObjectStore: config.Driver{Driver: DriverMemory},
		Media:       config.Media{FFmpegPath: "/nonexistent/ffmpeg"},
	}
}

func TestOpenDrivers(t *testing.T) {
	store, closer, err := OpenStorage(memoryConfig())
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &memory.Memory{}, store)

	objects, err := OpenObjectStore(memoryConfig())
	require.NoError(t, err)
	assert.IsType(t, &mediasvc.MemoryStore{}, objects)

	cfg := memoryConfig()
	cfg.Storage.Driver = "cassandra"
	_, _, err = OpenStorage(cfg)
	assert.Error(t, err)

	cfg.ObjectStore.Driver = "s3"
	_, err = OpenObjectStore(cfg)
	assert.Error(t, err)
}

func TestNewWithoutRedis(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), events.Nop{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.IsType(t, &memory.Memory{}, a.Storage)
	assert.Nil(t, NewThumbnailer(memoryConfig().Media))

	story, err := a.Stories.Create(context.Background(), &types.CreateStoryRequest{
		Title:      types.Localized{"en": "t", "rw": "t"},
		Body:       types.Localized{"en": "b", "rw": "b"},
		AuthorName: "Aline",
		AuthorRole: types.AuthorRoleStaff,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, story.ID)
}

func TestNewWrapsStorageWithCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := memoryConfig()
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, events.Nop{})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Redis)
	assert.IsType(t, &cache.CacheService{}, a.Storage)
}

func TestOpenRedisUnreachable(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis.Addr = "127.0.0.1:1"
	assert.Nil(t, OpenRedis(context.Background(), cfg))
}
