// Package stories coordinates story records with the media objects they reference.
package stories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/princekumarofficial/impact-stories/internal/apperr"
	"github.com/princekumarofficial/impact-stories/internal/payload"
	mediasvc "github.com/princekumarofficial/impact-stories/internal/services/media"
	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

// Publisher broadcasts story changes to live subscribers
type Publisher interface {
	PublishStoryEvent(eventType types.EventType, data *types.StoryEvent)
}

// Service executes story requests against the record store and the coordinator
type Service struct {
	store       storage.Storage
	coordinator *Coordinator
	validator   *mediasvc.Validator
	publisher   Publisher
	logger      *slog.Logger
	grace       time.Duration
	now         func() time.Time
}

func NewService(store storage.Storage, objects ObjectStore, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		store:       store,
		coordinator: NewCoordinator(store, objects, opts),
		validator:   opts.Validator,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		grace:       opts.OrphanGracePeriod,
		now:         opts.Clock,
	}
}

// Coordinator exposes the media lifecycle operations directly
func (s *Service) Coordinator() *Coordinator {
	return s.coordinator
}

func (s *Service) publish(eventType types.EventType, story *types.Story, publicIDs ...string) {
	if s.publisher == nil || story == nil {
		return
	}
	s.publisher.PublishStoryEvent(eventType, &types.StoryEvent{
		StoryID:    story.ID,
		Version:    story.Version,
		MediaCount: len(story.Media),
		PublicIDs:  publicIDs,
	})
}

func notFound(entity, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}

func requireLocalized(field string, value types.Localized) error {
	for lang := range value {
		if !lang.Valid() {
			return apperr.Validationf("%s: unsupported language %q", field, lang)
		}
	}
	for _, lang := range types.Languages {
		if strings.TrimSpace(value[lang]) == "" {
			return apperr.Validationf("%s: %q text is required", field, lang)
		}
	}
	return nil
}

// mergeLocalized applies a partial title/body edit; every supplied language must be non-empty
func mergeLocalized(field string, current, edit types.Localized) (types.Localized, error) {
	out := current.Clone()
	if out == nil {
		out = types.Localized{}
	}
	for lang, text := range edit {
		if !lang.Valid() {
			return nil, apperr.Validationf("%s: unsupported language %q", field, lang)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, apperr.Validationf("%s: %q text cannot be empty", field, lang)
		}
		out[lang] = text
	}
	return out, nil
}

func trimLocalized(value types.Localized) types.Localized {
	out := make(types.Localized, len(value))
	for lang, text := range value {
		out[lang] = strings.TrimSpace(text)
	}
	return out
}

func (s *Service) checkPublishedDate(d types.Date) error {
	if d.IsAfterDay(s.now()) {
		return apperr.Validationf("publishedDate %s is in the future", d)
	}
	return nil
}

func mergeMetadata(current *types.Metadata, patch *types.MetadataPatch) (*types.Metadata, error) {
	out := &types.Metadata{Tags: []string{}}
	if current != nil {
		out.Location = current.Location
		out.DurationSeconds = current.DurationSeconds
		out.Tags = append([]string{}, current.Tags...)
	}
	if patch.Tags != nil {
		out.Tags = payload.ParseTags(patch.Tags)
	}
	if patch.Location != nil {
		out.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.DurationSeconds != nil {
		if *patch.DurationSeconds < 0 {
			return nil, apperr.Validation("metadata.durationSeconds cannot be negative")
		}
		out.DurationSeconds = *patch.DurationSeconds
	}
	return out, nil
}

func (s *Service) resolveProgram(ctx context.Context, id string) error {
	if _, err := s.store.FindProgram(ctx, id); err != nil {
		return notFound("program", id, err)
	}
	return nil
}

func (s *Service) resolveBeneficiary(ctx context.Context, id string) error {
	if _, err := s.store.FindBeneficiary(ctx, id); err != nil {
		return notFound("beneficiary", id, err)
	}
	return nil
}

// alignFiles normalizes the advisory media fields against files and validates every file
func (s *Service) alignFiles(files []media.File, rawKinds, rawCaptions any) ([]media.Kind, []string, error) {
	kinds, captions := payload.AlignMedia(files, rawKinds, rawCaptions)
	if err := s.validator.ValidateAll(files, kinds); err != nil {
		return nil, nil, err
	}
	return kinds, captions, nil
}

// Create validates the request, saves the record and then attaches its media.
// Every file is validated before the record is saved; a storage failure while
// attaching leaves the record with the media added so far and returns it
// alongside the error.
func (s *Service) Create(ctx context.Context, req *types.CreateStoryRequest) (*types.Story, error) {
	if err := requireLocalized("title", req.Title); err != nil {
		return nil, err
	}
	if err := requireLocalized("body", req.Body); err != nil {
		return nil, err
	}
	authorName := strings.TrimSpace(req.AuthorName)
	if authorName == "" {
		return nil, apperr.Validation("authorName is required")
	}
	if !req.AuthorRole.Valid() {
		return nil, apperr.Validationf("authorRole %q is not supported", req.AuthorRole)
	}

	language := req.Language
	if language == "" {
		language = types.DefaultLanguage
	}
	if !language.Valid() {
		return nil, apperr.Validationf("language %q is not supported", language)
	}

	published := types.NewDate(s.now())
	if req.PublishedDate != nil {
		published = *req.PublishedDate
	}
	if err := s.checkPublishedDate(published); err != nil {
		return nil, err
	}

	story := &types.Story{
		ID:            uuid.New().String(),
		Title:         trimLocalized(req.Title),
		Body:          trimLocalized(req.Body),
		AuthorName:    authorName,
		AuthorRole:    req.AuthorRole,
		Media:         []media.Item{},
		IsFeatured:    req.IsFeatured,
		IsPublished:   req.IsPublished,
		PublishedDate: published,
		Language:      language,
	}

	if id := strings.TrimSpace(req.ProgramID); id != "" {
		if err := s.resolveProgram(ctx, id); err != nil {
			return nil, err
		}
		story.ProgramID = &id
	}
	if id := strings.TrimSpace(req.BeneficiaryID); id != "" {
		if err := s.resolveBeneficiary(ctx, id); err != nil {
			return nil, err
		}
		story.BeneficiaryID = &id
	}
	if req.Metadata != nil {
		meta, err := mergeMetadata(nil, req.Metadata)
		if err != nil {
			return nil, err
		}
		story.Metadata = meta
	}

	kinds, captions, err := s.alignFiles(req.Files, req.MediaTypes, req.Captions)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.SaveStory(ctx, story)
	if err != nil {
		return nil, fmt.Errorf("save story: %w", err)
	}

	if len(req.Files) > 0 {
		if _, err := s.coordinator.AddMany(ctx, saved.ID, req.Files, kinds, captions); err != nil {
			partial, getErr := s.Get(ctx, saved.ID)
			if getErr != nil {
				partial = saved
			}
			s.logger.Warn("story created with partial media",
				slog.String("story_id", saved.ID),
				slog.Int("media", len(partial.Media)),
				slog.Int("files", len(req.Files)),
				slog.String("error", err.Error()))
			s.publish(types.EventStoryCreated, partial)
			return partial, fmt.Errorf("story %s saved with %d of %d media: %w",
				saved.ID, len(partial.Media), len(req.Files), err)
		}
	}

	created, err := s.Get(ctx, saved.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("story created",
		slog.String("story_id", created.ID),
		slog.Int("media", len(created.Media)))
	s.publish(types.EventStoryCreated, created)
	return created, nil
}

// Get returns the story with its program and beneficiary resolved
func (s *Service) Get(ctx context.Context, id string) (*types.Story, error) {
	story, err := s.store.FindStoryByID(ctx, id, true)
	if err != nil {
		return nil, notFound("story", id, err)
	}
	return story, nil
}

// fieldEdit is a pre-validated partial update ready to apply to a loaded story
type fieldEdit struct {
	req           *types.UpdateStoryRequest
	authorName    string
	programID     *string
	beneficiaryID *string
}

func (s *Service) prepareFieldEdit(ctx context.Context, req *types.UpdateStoryRequest) (*fieldEdit, error) {
	edit := &fieldEdit{req: req}

	if _, err := mergeLocalized("title", nil, req.Title); err != nil {
		return nil, err
	}
	if _, err := mergeLocalized("body", nil, req.Body); err != nil {
		return nil, err
	}

	if req.AuthorName != nil {
		edit.authorName = strings.TrimSpace(*req.AuthorName)
		if edit.authorName == "" {
			return nil, apperr.Validation("authorName cannot be empty")
		}
	}
	if req.AuthorRole != nil && !req.AuthorRole.Valid() {
		return nil, apperr.Validationf("authorRole %q is not supported", *req.AuthorRole)
	}
	if req.Language != nil && !req.Language.Valid() {
		return nil, apperr.Validationf("language %q is not supported", *req.Language)
	}
	if req.PublishedDate != nil {
		if err := s.checkPublishedDate(*req.PublishedDate); err != nil {
			return nil, err
		}
	}
	if req.Metadata != nil && req.Metadata.DurationSeconds != nil && *req.Metadata.DurationSeconds < 0 {
		return nil, apperr.Validation("metadata.durationSeconds cannot be negative")
	}

	if req.ProgramID.Set && !req.ProgramID.Clears() {
		id := strings.TrimSpace(req.ProgramID.Value)
		if err := s.resolveProgram(ctx, id); err != nil {
			return nil, err
		}
		edit.programID = &id
	}
	if req.BeneficiaryID.Set && !req.BeneficiaryID.Clears() {
		id := strings.TrimSpace(req.BeneficiaryID.Value)
		if err := s.resolveBeneficiary(ctx, id); err != nil {
			return nil, err
		}
		edit.beneficiaryID = &id
	}
	return edit, nil
}

func (e *fieldEdit) apply(story *types.Story) error {
	req := e.req

	if req.Title != nil {
		title, err := mergeLocalized("title", story.Title, req.Title)
		if err != nil {
			return err
		}
		story.Title = title
	}
	if req.Body != nil {
		body, err := mergeLocalized("body", story.Body, req.Body)
		if err != nil {
			return err
		}
		story.Body = body
	}
	if req.AuthorName != nil {
		story.AuthorName = e.authorName
	}
	if req.AuthorRole != nil {
		story.AuthorRole = *req.AuthorRole
	}
	if req.ProgramID.Set {
		story.ProgramID = e.programID
	}
	if req.BeneficiaryID.Set {
		story.BeneficiaryID = e.beneficiaryID
	}
	if req.IsFeatured != nil {
		story.IsFeatured = *req.IsFeatured
	}
	if req.IsPublished != nil {
		story.IsPublished = *req.IsPublished
	}
	if req.PublishedDate != nil {
		story.PublishedDate = *req.PublishedDate
	}
	if req.Language != nil {
		story.Language = *req.Language
	}
	if req.Metadata != nil {
		meta, err := mergeMetadata(story.Metadata, req.Metadata)
		if err != nil {
			return err
		}
		story.Metadata = meta
	}
	return nil
}

// Update runs a composite update in a fixed order: field edits, removals,
// caption edits, additions, then a re-read. Steps that already ran are not
// undone when a later one fails. All inputs are parsed and validated before
// the first step runs.
func (s *Service) Update(ctx context.Context, id string, req *types.UpdateStoryRequest) (*types.Story, error) {
	removeIDs := payload.ParseIDs(req.RemoveMedia)
	captionUpdates, err := payload.ParseCaptionUpdates(req.UpdateMedia)
	if err != nil {
		return nil, err
	}
	kinds, captions, err := s.alignFiles(req.Files, req.MediaTypes, req.Captions)
	if err != nil {
		return nil, err
	}

	if _, err := s.coordinator.load(ctx, id); err != nil {
		return nil, err
	}

	if req.HasFieldEdits() {
		edit, err := s.prepareFieldEdit(ctx, req)
		if err != nil {
			return nil, err
		}
		if _, err := s.coordinator.mutate(ctx, id, edit.apply); err != nil {
			return nil, err
		}
	}

	if len(removeIDs) > 0 {
		_, results, err := s.coordinator.RemoveMany(ctx, id, removeIDs)
		if err != nil {
			return nil, err
		}
		s.logRemovals(id, results)
	}

	if len(captionUpdates) > 0 {
		if _, err := s.coordinator.UpdateCaptions(ctx, id, captionUpdates); err != nil {
			return nil, err
		}
	}

	if len(req.Files) > 0 {
		if _, err := s.coordinator.AddMany(ctx, id, req.Files, kinds, captions); err != nil {
			return nil, err
		}
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(types.EventStoryUpdated, updated)
	return updated, nil
}

func (s *Service) logRemovals(storyID string, results []types.ItemResult) {
	for _, r := range results {
		if r.Outcome == types.OutcomeRemoved {
			continue
		}
		s.logger.Warn("media removal incomplete",
			slog.String("story_id", storyID),
			slog.String("public_id", r.ID),
			slog.String("outcome", string(r.Outcome)))
	}
}

// Delete purges the story's objects and then removes the record
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.coordinator.PurgeAll(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteStory(ctx, id); err != nil {
		return notFound("story", id, err)
	}

	s.logger.Info("story deleted", slog.String("story_id", id))
	s.publish(types.EventStoryDeleted, &types.Story{ID: id})
	return nil
}

// BulkDelete deletes each story independently, logging and recording failures
// instead of stopping at the first one.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (*types.BulkDeleteResult, error) {
	ids = payload.ParseIDs(ids)
	if len(ids) == 0 {
		return nil, apperr.Validation("ids must contain at least one story id")
	}

	result := &types.BulkDeleteResult{Results: make([]types.ItemResult, 0, len(ids))}
	for _, id := range ids {
		err := s.Delete(ctx, id)
		switch {
		case err == nil:
			result.Deleted++
			result.Results = append(result.Results, types.ItemResult{ID: id, Outcome: types.OutcomeDeleted})
		case apperr.IsNotFound(err):
			s.logger.Warn("bulk delete: story not found", slog.String("story_id", id))
			result.Results = append(result.Results, types.ItemResult{ID: id, Outcome: types.OutcomeNotFound, Error: err.Error()})
		default:
			s.logger.Error("bulk delete: failed to delete story",
				slog.String("story_id", id),
				slog.String("error", err.Error()))
			result.Results = append(result.Results, types.ItemResult{ID: id, Outcome: types.OutcomeFailed, Error: err.Error()})
		}
	}
	return result, nil
}

// AddMedia attaches files to an existing story
func (s *Service) AddMedia(ctx context.Context, id string, files []media.File, rawKinds, rawCaptions any) (*types.Story, error) {
	if len(files) == 0 {
		return nil, apperr.Validation("at least one media file is required")
	}
	kinds, captions, err := s.alignFiles(files, rawKinds, rawCaptions)
	if err != nil {
		return nil, err
	}
	if _, err := s.coordinator.AddMany(ctx, id, files, kinds, captions); err != nil {
		return nil, err
	}

	story, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(types.EventMediaAdded, story)
	return story, nil
}

// RemoveMedia removes a single media item, surfacing storage failures
func (s *Service) RemoveMedia(ctx context.Context, id, publicID string) (*types.Story, error) {
	if _, err := s.coordinator.RemoveOne(ctx, id, publicID); err != nil {
		return nil, err
	}
	story, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(types.EventMediaRemoved, story, publicID)
	return story, nil
}

// UpdateMediaCaption edits one caption, failing when publicID is not attached
func (s *Service) UpdateMediaCaption(ctx context.Context, id, publicID, caption string) (*types.Story, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, apperr.Validation("publicId is required")
	}
	if _, err := s.coordinator.UpdateCaption(ctx, id, publicID, caption); err != nil {
		return nil, err
	}
	story, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(types.EventStoryUpdated, story)
	return story, nil
}

// RecordView bumps the view counter in the background; failures are only logged
func (s *Service) RecordView(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.store.IncrementViewCount(ctx, id); err != nil {
			s.logger.Warn("failed to increment view count",
				slog.String("story_id", id),
				slog.String("error", err.Error()))
		}
	}()
}

func (s *Service) IncrementShareCount(ctx context.Context, id string) (int64, error) {
	count, err := s.store.IncrementShareCount(ctx, id)
	if err != nil {
		return 0, notFound("story", id, err)
	}
	return count, nil
}

// Reconcile verifies one story against object storage and repairs drift
func (s *Service) Reconcile(ctx context.Context, id string) (*types.ReconcileReport, error) {
	report, err := s.coordinator.Reconcile(ctx, id, s.grace)
	if err != nil {
		return nil, err
	}
	if len(report.DanglingMediaDropped) > 0 || len(report.ThumbnailsRederived) > 0 {
		if story, err := s.Get(ctx, id); err == nil {
			s.publish(types.EventStoryUpdated, story)
		}
	}
	return report, nil
}

// ReconcileAll sweeps every story, continuing past individual failures
func (s *Service) ReconcileAll(ctx context.Context) ([]*types.ReconcileReport, error) {
	ids, err := s.store.ListStoryIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	var reports []*types.ReconcileReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.Reconcile(ctx, id)
		if err != nil {
			if !apperr.IsNotFound(err) {
				s.logger.Error("failed to reconcile story",
					slog.String("story_id", id),
					slog.String("error", err.Error()))
			}
			continue
		}
		if report.Changed() {
			reports = append(reports, report)
		}
	}
	return reports, nil
}
