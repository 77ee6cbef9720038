package stories

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	mediasvc "github.com/princekumarofficial/impact-stories/internal/services/media"
	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/storage/memory"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// objectStore wraps the in-memory gateway with injectable failures
type objectStore struct {
	*mediasvc.MemoryStore

	mu             sync.Mutex
	uploads        int
	failUploadFrom int
	failDelete     map[string]bool
}

func newObjectStore() *objectStore {
	return &objectStore{MemoryStore: mediasvc.NewMemoryStore("https://media.test"), failDelete: map[string]bool{}}
}

func (o *objectStore) Upload(ctx context.Context, folder string, file media.File, kind media.Kind) (media.UploadResult, error) {
	o.mu.Lock()
	o.uploads++
	n := o.uploads
	o.mu.Unlock()
	if o.failUploadFrom > 0 && n >= o.failUploadFrom {
		return media.UploadResult{}, errors.New("bucket unavailable")
	}
	return o.MemoryStore.Upload(ctx, folder, file, kind)
}

func (o *objectStore) Delete(ctx context.Context, publicID string) error {
	if o.failDelete[publicID] {
		return errors.New("connection reset")
	}
	return o.MemoryStore.Delete(ctx, publicID)
}

// conflictStore loses the first n version races on update
type conflictStore struct {
	*memory.Memory
	conflicts int
	saves     int
}

func (c *conflictStore) SaveStory(ctx context.Context, story *types.Story) (*types.Story, error) {
	c.saves++
	if story.Version > 0 && c.conflicts > 0 {
		c.conflicts--
		return nil, storage.ErrVersionConflict
	}
	return c.Memory.SaveStory(ctx, story)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []types.EventType
}

func (r *recordedEvents) PublishStoryEvent(eventType types.EventType, _ *types.StoryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordedEvents) list() []types.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.EventType(nil), r.events...)
}

type stubThumbnailer struct {
	err error
}

func (s stubThumbnailer) ExtractFrame(_ context.Context, video media.File) (media.File, error) {
	if s.err != nil {
		return media.File{}, s.err
	}
	return media.FromBytes(video.Name+".jpg", "image/jpeg", []byte("jpeg")), nil
}

type fixture struct {
	svc     *Service
	store   *memory.Memory
	objects *objectStore
	events  *recordedEvents
}

func testOptions(events *recordedEvents) Options {
	return Options{
		Publisher:  events,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxRetries: 3,
		BackOff:    func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		Clock:      func() time.Time { return fixedNow },
	}
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), objects: newObjectStore(), events: &recordedEvents{}}
	f.store.AddProgram("prog-1", "School feeding")
	f.store.AddBeneficiary("ben-1", "Uwase")

	opts := testOptions(f.events)
	for _, m := range mutate {
		m(&opts)
	}
	f.svc = NewService(f.store, f.objects, opts)
	return f
}

func image(name string) media.File {
	return media.FromBytes(name, "image/jpeg", []byte("jpeg-bytes"))
}

func video(name string) media.File {
	return media.FromBytes(name, "video/mp4", []byte("mp4-bytes"))
}

func createRequest(files ...media.File) *types.CreateStoryRequest {
	return &types.CreateStoryRequest{
		Title:      types.Localized{types.LanguageEnglish: "Clean water", types.LanguageKinyarwanda: "Amazi meza"},
		Body:       types.Localized{types.LanguageEnglish: "A new well", types.LanguageKinyarwanda: "Iriba rishya"},
		AuthorName: "Aline",
		AuthorRole: types.AuthorRoleStaff,
		Files:      files,
	}
}

func (f *fixture) create(t *testing.T, files ...media.File) *types.Story {
	t.Helper()
	story, err := f.svc.Create(context.Background(), createRequest(files...))
	require.NoError(t, err)
	return story
}
