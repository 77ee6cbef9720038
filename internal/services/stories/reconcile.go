package stories

import (
	"context"
	"log/slog"
	"time"

	"github.com/princekumarofficial/impact-stories/internal/apperr"
	mediasvc "github.com/princekumarofficial/impact-stories/internal/services/media"
	"github.com/princekumarofficial/impact-stories/internal/types"
)

// Reconcile diffs the story's media list against its storage folder.
//
// Objects no item references and older than grace are deleted. Items whose
// primary object is missing are dropped, and items whose thumbnail object is
// missing fall back to a derived preview. Only items saved before the folder
// was listed are judged, so an add racing with the pass is never touched.
func (c *Coordinator) Reconcile(ctx context.Context, storyID string, grace time.Duration) (*types.ReconcileReport, error) {
	report := &types.ReconcileReport{
		StoryID:              storyID,
		OrphanObjectsDeleted: []string{},
		DanglingMediaDropped: []string{},
	}

	before, err := c.load(ctx, storyID)
	if err != nil {
		return nil, err
	}

	listing, err := c.objects.ListFolder(ctx, mediasvc.StoryFolder(storyID))
	if err != nil {
		return nil, apperr.UpstreamStorage("list", err)
	}
	stored := make(map[string]mediasvc.ObjectInfo, len(listing))
	for _, obj := range listing {
		stored[obj.Key] = obj
	}

	// re-read so items saved while listing count as references
	after, err := c.load(ctx, storyID)
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]struct{}, 2*len(after.Media))
	for _, item := range after.Media {
		referenced[item.PublicID] = struct{}{}
		if item.ThumbnailPublicID != "" {
			referenced[item.ThumbnailPublicID] = struct{}{}
		}
	}

	cutoff := c.now().Add(-grace)
	for _, obj := range listing {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := c.objects.Delete(ctx, obj.Key); err != nil {
			c.logger.Warn("failed to delete orphan object",
				slog.String("story_id", storyID),
				slog.String("key", obj.Key),
				slog.String("error", err.Error()))
			report.Errors = append(report.Errors, obj.Key+": "+err.Error())
			continue
		}
		report.OrphanObjectsDeleted = append(report.OrphanObjectsDeleted, obj.Key)
	}

	dangling := make(map[string]struct{})
	lostThumbs := make(map[string]struct{})
	for _, item := range before.Media {
		if _, ok := stored[item.PublicID]; !ok {
			dangling[item.PublicID] = struct{}{}
			continue
		}
		if item.ThumbnailPublicID != "" {
			if _, ok := stored[item.ThumbnailPublicID]; !ok {
				lostThumbs[item.PublicID] = struct{}{}
			}
		}
	}
	if len(dangling) == 0 && len(lostThumbs) == 0 {
		return report, nil
	}

	_, err = c.mutate(ctx, storyID, func(story *types.Story) error {
		report.DanglingMediaDropped = report.DanglingMediaDropped[:0]
		report.ThumbnailsRederived = nil

		changed := false
		kept := story.Media[:0:0]
		for _, item := range story.Media {
			if _, ok := dangling[item.PublicID]; ok {
				report.DanglingMediaDropped = append(report.DanglingMediaDropped, item.PublicID)
				changed = true
				continue
			}
			if _, ok := lostThumbs[item.PublicID]; ok && item.ThumbnailPublicID != "" {
				item.ThumbnailPublicID = ""
				item.ThumbnailURL = c.derivedThumbnail(item.PublicID, item.URL)
				report.ThumbnailsRederived = append(report.ThumbnailsRederived, item.PublicID)
				changed = true
			}
			kept = append(kept, item)
		}
		if !changed {
			return errUnchanged
		}
		story.Media = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("reconciled story media",
		slog.String("story_id", storyID),
		slog.Int("orphans_deleted", len(report.OrphanObjectsDeleted)),
		slog.Int("dangling_dropped", len(report.DanglingMediaDropped)))
	return report, nil
}
