package stories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/princekumarofficial/impact-stories/internal/apperr"
	mediasvc "github.com/princekumarofficial/impact-stories/internal/services/media"
	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

// ObjectStore is the object storage gateway the coordinator drives
type ObjectStore interface {
	Upload(ctx context.Context, folder string, file media.File, kind media.Kind) (media.UploadResult, error)
	DerivePreviewURL(publicID string, opts mediasvc.PreviewOptions) (string, error)
	Delete(ctx context.Context, publicID string) error
	DeleteFolder(ctx context.Context, folder string) error
	ListFolder(ctx context.Context, folder string) ([]mediasvc.ObjectInfo, error)
}

// Thumbnailer renders a still image of a video
type Thumbnailer interface {
	ExtractFrame(ctx context.Context, video media.File) (media.File, error)
}

// RecordStore is the part of the story store the coordinator needs
type RecordStore interface {
	FindStoryByID(ctx context.Context, id string, withRelations bool) (*types.Story, error)
	SaveStory(ctx context.Context, story *types.Story) (*types.Story, error)
}

const DefaultMaxRetries = 5

// errUnchanged lets a mutation skip the save when it found nothing to do
var errUnchanged = errors.New("story unchanged")

// Coordinator owns every change to a story's media list and keeps it in step
// with the objects held by the object store.
type Coordinator struct {
	store       RecordStore
	objects     ObjectStore
	validator   *mediasvc.Validator
	thumbnailer Thumbnailer
	preview     mediasvc.PreviewOptions
	maxRetries  uint64
	newBackOff  func() backoff.BackOff
	logger      *slog.Logger
	now         func() time.Time
}

func NewCoordinator(store RecordStore, objects ObjectStore, opts Options) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		store:       store,
		objects:     objects,
		validator:   opts.Validator,
		thumbnailer: opts.Thumbnailer,
		preview:     opts.Preview,
		maxRetries:  opts.MaxRetries,
		newBackOff:  opts.BackOff,
		logger:      opts.Logger,
		now:         opts.Clock,
	}
}

// mutate runs load, modify and save against the latest version of the story,
// retrying the whole cycle when the save loses a version race. modify must only
// touch the story it is handed; it is re-run from scratch on every attempt.
func (c *Coordinator) mutate(ctx context.Context, storyID string, modify func(*types.Story) error) (*types.Story, error) {
	attempt := 0
	op := func() (*types.Story, error) {
		attempt++
		story, err := c.store.FindStoryByID(ctx, storyID, false)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, backoff.Permanent(apperr.NotFound("story", storyID))
		}
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("load story %s: %w", storyID, err))
		}

		if err := modify(story); err != nil {
			if errors.Is(err, errUnchanged) {
				return story, nil
			}
			return nil, backoff.Permanent(err)
		}

		saved, err := c.store.SaveStory(ctx, story)
		switch {
		case err == nil:
			return saved, nil
		case errors.Is(err, storage.ErrVersionConflict):
			c.logger.Debug("story version conflict, retrying",
				slog.String("story_id", storyID),
				slog.Int("version", story.Version),
				slog.Int("attempt", attempt))
			return nil, err
		case errors.Is(err, storage.ErrNotFound):
			return nil, backoff.Permanent(apperr.NotFound("story", storyID))
		default:
			return nil, backoff.Permanent(fmt.Errorf("save story %s: %w", storyID, err))
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	story, err := backoff.RetryWithData(op, b)
	if errors.Is(err, storage.ErrVersionConflict) {
		return nil, apperr.Conflict(fmt.Sprintf("story %s kept changing, gave up after %d attempts", storyID, attempt), err)
	}
	return story, err
}

func (c *Coordinator) load(ctx context.Context, storyID string) (*types.Story, error) {
	story, err := c.store.FindStoryByID(ctx, storyID, false)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("story", storyID)
	}
	if err != nil {
		return nil, fmt.Errorf("load story %s: %w", storyID, err)
	}
	return story, nil
}

// placeholderCaption is used when no caption was supplied; position is 1-based
func placeholderCaption(kind media.Kind, position int) string {
	return fmt.Sprintf("Story %s %d", kind, position)
}

// AddOne validates and uploads a single file, then appends it to the story's media list.
// A failed save after a successful upload leaves the object behind for Reconcile.
func (c *Coordinator) AddOne(ctx context.Context, storyID string, file media.File, kind media.Kind, caption string) (*types.Story, error) {
	if err := c.validator.Validate(&file, kind); err != nil {
		return nil, err
	}
	if _, err := c.load(ctx, storyID); err != nil {
		return nil, err
	}

	uploaded, err := c.objects.Upload(ctx, mediasvc.StoryFolder(storyID), file, kind)
	if err != nil {
		return nil, apperr.UpstreamStorage("upload", err)
	}

	item := media.Item{
		URL:      uploaded.URL,
		PublicID: uploaded.PublicID,
		Kind:     kind,
		Caption:  caption,
	}
	if kind == media.KindVideo {
		item.ThumbnailURL, item.ThumbnailPublicID = c.videoThumbnail(ctx, storyID, file, uploaded)
	} else {
		item.ThumbnailURL = item.URL
	}

	return c.mutate(ctx, storyID, func(story *types.Story) error {
		if story.FindMedia(item.PublicID) >= 0 {
			return errUnchanged
		}
		next := item
		if next.Caption == "" {
			next.Caption = placeholderCaption(next.Kind, len(story.Media)+1)
		}
		story.Media = append(story.Media, next)
		return nil
	})
}

// videoThumbnail extracts and uploads a frame when a thumbnailer is available,
// and otherwise falls back to the gateway's derived preview URL.
func (c *Coordinator) videoThumbnail(ctx context.Context, storyID string, file media.File, uploaded media.UploadResult) (string, string) {
	if c.thumbnailer != nil {
		frame, err := c.thumbnailer.ExtractFrame(ctx, file)
		if err == nil {
			thumb, err := c.objects.Upload(ctx, mediasvc.ThumbnailFolder(storyID), frame, media.KindImage)
			if err == nil {
				return thumb.URL, thumb.PublicID
			}
			c.logger.Warn("failed to upload video thumbnail",
				slog.String("story_id", storyID),
				slog.String("public_id", uploaded.PublicID),
				slog.String("error", err.Error()))
		} else {
			c.logger.Warn("failed to extract video frame",
				slog.String("story_id", storyID),
				slog.String("public_id", uploaded.PublicID),
				slog.String("error", err.Error()))
		}
	}

	return c.derivedThumbnail(uploaded.PublicID, uploaded.URL), ""
}

func (c *Coordinator) derivedThumbnail(publicID, url string) string {
	preview, err := c.objects.DerivePreviewURL(publicID, c.preview)
	if err != nil || preview == "" {
		c.logger.Warn("failed to derive preview url, using the asset url",
			slog.String("public_id", publicID))
		return url
	}
	return preview
}

// AddMany adds aligned files one at a time. Earlier uploads are kept when a later file fails.
func (c *Coordinator) AddMany(ctx context.Context, storyID string, files []media.File, kinds []media.Kind, captions []string) (*types.Story, error) {
	if len(kinds) != len(files) || len(captions) != len(files) {
		return nil, apperr.Validationf("got %d files, %d media types and %d captions", len(files), len(kinds), len(captions))
	}
	if len(files) == 0 {
		return c.load(ctx, storyID)
	}

	var story *types.Story
	for i := range files {
		var err error
		story, err = c.AddOne(ctx, storyID, files[i], kinds[i], captions[i])
		if err != nil {
			return nil, fmt.Errorf("media %d (%s): %w", i+1, files[i].Name, err)
		}
	}
	return story, nil
}

func (c *Coordinator) deleteObjects(ctx context.Context, item media.Item) error {
	if err := c.objects.Delete(ctx, item.PublicID); err != nil {
		return apperr.UpstreamStorage("delete", err)
	}
	if item.ThumbnailPublicID != "" {
		if err := c.objects.Delete(ctx, item.ThumbnailPublicID); err != nil {
			return apperr.UpstreamStorage("delete", err)
		}
	}
	return nil
}

func withoutMedia(items []media.Item, drop map[string]struct{}) []media.Item {
	kept := make([]media.Item, 0, len(items))
	for _, item := range items {
		if _, ok := drop[item.PublicID]; !ok {
			kept = append(kept, item)
		}
	}
	return kept
}

// RemoveOne deletes one item's objects and then drops it from the list
func (c *Coordinator) RemoveOne(ctx context.Context, storyID, publicID string) (*types.Story, error) {
	story, err := c.load(ctx, storyID)
	if err != nil {
		return nil, err
	}
	idx := story.FindMedia(publicID)
	if idx < 0 {
		return nil, apperr.NotFound("media", publicID)
	}

	if err := c.deleteObjects(ctx, story.Media[idx]); err != nil {
		return nil, err
	}

	drop := map[string]struct{}{publicID: {}}
	return c.mutate(ctx, storyID, func(story *types.Story) error {
		if story.FindMedia(publicID) < 0 {
			return errUnchanged
		}
		story.Media = withoutMedia(story.Media, drop)
		return nil
	})
}

// RemoveMany deletes the objects of every listed item that exists and then
// filters them all out in one save. Storage failures are logged and reported
// per id; ids that are not in the list are reported as not found.
func (c *Coordinator) RemoveMany(ctx context.Context, storyID string, publicIDs []string) (*types.Story, []types.ItemResult, error) {
	story, err := c.load(ctx, storyID)
	if err != nil {
		return nil, nil, err
	}

	results := make([]types.ItemResult, 0, len(publicIDs))
	drop := make(map[string]struct{}, len(publicIDs))
	for _, publicID := range publicIDs {
		idx := story.FindMedia(publicID)
		if idx < 0 {
			results = append(results, types.ItemResult{ID: publicID, Outcome: types.OutcomeNotFound})
			continue
		}
		drop[publicID] = struct{}{}

		if err := c.deleteObjects(ctx, story.Media[idx]); err != nil {
			c.logger.Warn("failed to delete media object",
				slog.String("story_id", storyID),
				slog.String("public_id", publicID),
				slog.String("error", err.Error()))
			results = append(results, types.ItemResult{ID: publicID, Outcome: types.OutcomeStorageError, Error: err.Error()})
			continue
		}
		results = append(results, types.ItemResult{ID: publicID, Outcome: types.OutcomeRemoved})
	}

	if len(drop) == 0 {
		return story, results, nil
	}

	saved, err := c.mutate(ctx, storyID, func(story *types.Story) error {
		before := len(story.Media)
		story.Media = withoutMedia(story.Media, drop)
		if len(story.Media) == before {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, results, err
	}
	return saved, results, nil
}

// UpdateCaption changes the caption of exactly one item
func (c *Coordinator) UpdateCaption(ctx context.Context, storyID, publicID, caption string) (*types.Story, error) {
	return c.mutate(ctx, storyID, func(story *types.Story) error {
		idx := story.FindMedia(publicID)
		if idx < 0 {
			return apperr.NotFound("media", publicID)
		}
		story.Media[idx].Caption = caption
		return nil
	})
}

// UpdateCaptions applies a batch of caption edits, skipping ids that are not in the list
func (c *Coordinator) UpdateCaptions(ctx context.Context, storyID string, updates []media.CaptionUpdate) (*types.Story, error) {
	return c.mutate(ctx, storyID, func(story *types.Story) error {
		changed := false
		for _, u := range updates {
			if idx := story.FindMedia(u.PublicID); idx >= 0 {
				story.Media[idx].Caption = u.Caption
				changed = true
			}
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
}

// PurgeAll deletes every object the story references and then its whole folder.
// Storage failures are logged and do not stop the purge.
func (c *Coordinator) PurgeAll(ctx context.Context, storyID string) error {
	story, err := c.load(ctx, storyID)
	if err != nil {
		return err
	}

	for _, item := range story.Media {
		if err := c.deleteObjects(ctx, item); err != nil {
			c.logger.Warn("failed to delete media object during purge",
				slog.String("story_id", storyID),
				slog.String("public_id", item.PublicID),
				slog.String("error", err.Error()))
		}
	}

	if err := c.objects.DeleteFolder(ctx, mediasvc.StoryFolder(storyID)); err != nil {
		c.logger.Warn("failed to delete story folder",
			slog.String("story_id", storyID),
			slog.String("error", err.Error()))
	}
	return nil
}
