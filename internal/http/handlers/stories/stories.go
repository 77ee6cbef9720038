package stories

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/princekumarofficial/impact-stories/internal/apperr"
	storiesService "github.com/princekumarofficial/impact-stories/internal/services/stories"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/utils/response"
)

var validate = validator.New()

// writeError answers with the status the error's classification calls for.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Story request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	response.WriteJSON(w, status, response.GeneralError(err))
}

// validateStruct runs the struct tags and answers 400 on failure.
func validateStruct(w http.ResponseWriter, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
		return false
	}
	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
	return false
}

func storyID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("story ID is required")))
		return "", false
	}
	return id, true
}

// PostStory handles creating a new story
// @Summary Create a story
// @Description Creates a story from JSON or multipart/form-data. Multipart accepts title/body as JSON objects or title[en] keys, metadata as JSON and files under "files" or "media".
// @Tags stories
// @Accept json,mpfd
// @Produce json
// @Param story body types.CreateStoryRequest true "Story content"
// @Success 201 {object} response.Response{data=types.Story}
// @Failure 400 {object} response.Response "Bad request"
// @Failure 413 {object} response.Response "Media too large"
// @Failure 415 {object} response.Response "Unsupported media type"
// @Failure 502 {object} response.Response "Object storage failure"
// @Security BearerAuth
// @Router /stories [post]
func PostStory(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseCreateRequest(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !validateStruct(w, req) {
			return
		}

		story, err := svc.Create(r.Context(), req)
		if err != nil && story != nil {
			// the record exists; hand back its id with the failure
			slog.Error("Story created with partial media",
				slog.String("story_id", story.ID),
				slog.String("error", err.Error()))
			resp := response.GeneralError(err)
			resp.Data = story
			response.WriteJSON(w, apperr.HTTPStatus(err), resp)
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		slog.Info("Story created", slog.String("story_id", story.ID))

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Story created successfully", story))
	}
}

// GetStory returns a story and counts the view
// @Summary Get a story
// @Tags stories
// @Produce json
// @Param id path string true "Story ID"
// @Success 200 {object} response.Response{data=types.Story}
// @Failure 404 {object} response.Response "Story not found"
// @Router /stories/{id} [get]
func GetStory(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := storyID(w, r)
		if !ok {
			return
		}

		story, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		svc.RecordView(r.Context(), id)

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Story fetched successfully", story))
	}
}

// PatchStory applies a composite update
// @Summary Update a story
// @Description Partially updates fields, then removes media (removeMedia), edits captions (updateMedia) and appends new files, in that order.
// @Tags stories
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Story ID"
// @Param story body types.UpdateStoryRequest true "Fields to change"
// @Success 200 {object} response.Response{data=types.Story}
// @Failure 400 {object} response.Response "Bad request"
// @Failure 404 {object} response.Response "Story not found"
// @Failure 409 {object} response.Response "Concurrent modification"
// @Security BearerAuth
// @Router /stories/{id} [patch]
func PatchStory(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := storyID(w, r)
		if !ok {
			return
		}
		req, err := parseUpdateRequest(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		story, err := svc.Update(r.Context(), id, req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Story updated successfully", story))
	}
}

// DeleteStory removes a story and all of its media
// @Summary Delete a story
// @Tags stories
// @Param id path string true "Story ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "Story not found"
// @Security BearerAuth
// @Router /stories/{id} [delete]
func DeleteStory(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := storyID(w, r)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Story deleted successfully", map[string]string{"id": id}))
	}
}

// BulkDeleteStories deletes several stories, reporting each outcome
// @Summary Delete several stories
// @Tags stories
// @Accept json
// @Produce json
// @Param request body types.BulkDeleteRequest true "Story IDs"
// @Success 200 {object} response.Response{data=types.BulkDeleteResult}
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /stories/bulk-delete [post]
func BulkDeleteStories(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.BulkDeleteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if !validateStruct(w, req) {
			return
		}

		result, err := svc.BulkDelete(r.Context(), req.IDs)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Stories deleted", result))
	}
}

// ShareStory counts a share
// @Summary Record a share
// @Tags stories
// @Param id path string true "Story ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "Story not found"
// @Router /stories/{id}/share [post]
func ShareStory(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := storyID(w, r)
		if !ok {
			return
		}
		count, err := svc.IncrementShareCount(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Share recorded", map[string]any{
			"id":          id,
			"share_count": count,
		}))
	}
}

// AddMedia appends uploaded files to a story
// @Summary Add media to a story
// @Tags media
// @Accept mpfd
// @Produce json
// @Param id path string true "Story ID"
// @Param files formData file true "Image or video files"
// @Param mediaTypes formData string false "image/video per file"
// @Param captions formData string false "Caption per file"
// @Success 201 {object} response.Response{data=types.Story}
// @Failure 400 {object} response.Response "Bad request"
// @Failure 404 {object} response.Response "Story not found"
// @Security BearerAuth
// @Router /stories/{id}/media [post]
func AddMedia(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := storyID(w, r)
		if !ok {
			return
		}
		upload, err := parseMediaUpload(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		story, err := svc.AddMedia(r.Context(), id, upload.files, upload.kinds, upload.captions)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Media added successfully", story))
	}
}

// UpdateMediaCaption edits the caption of one media item
// @Summary Update a media caption
// @Tags media
// @Accept json
// @Produce json
// @Param id path string true "Story ID"
// @Param request body types.CaptionUpdateRequest true "Caption"
// @Success 200 {object} response.Response{data=types.Story}
// @Failure 404 {object} response.Response "Story or media not found"
// @Security BearerAuth
// @Router /stories/{id}/media [patch]
func UpdateMediaCaption(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := storyID(w, r)
		if !ok {
			return
		}
		var req types.CaptionUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if !validateStruct(w, req) {
			return
		}

		story, err := svc.UpdateMediaCaption(r.Context(), id, req.PublicID, req.Caption)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Caption updated successfully", story))
	}
}

// RemoveMedia deletes one media item and its object
// @Summary Remove a media item
// @Tags media
// @Param id path string true "Story ID"
// @Param publicId path string true "Object key of the media item"
// @Success 200 {object} response.Response{data=types.Story}
// @Failure 404 {object} response.Response "Story or media not found"
// @Failure 502 {object} response.Response "Object storage failure"
// @Security BearerAuth
// @Router /stories/{id}/media/{publicId} [delete]
func RemoveMedia(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := storyID(w, r)
		if !ok {
			return
		}
		publicID := r.PathValue("publicId")
		if publicID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("publicId is required")))
			return
		}

		story, err := svc.RemoveMedia(r.Context(), id, publicID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media removed successfully", story))
	}
}

// ReconcileStory repairs drift between a story and its stored objects
// @Summary Verify and repair a story's media
// @Tags media
// @Param id path string true "Story ID"
// @Success 200 {object} response.Response{data=types.ReconcileReport}
// @Failure 404 {object} response.Response "Story not found"
// @Security BearerAuth
// @Router /stories/{id}/reconcile [post]
func ReconcileStory(svc *storiesService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := storyID(w, r)
		if !ok {
			return
		}
		report, err := svc.Reconcile(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Story reconciled", report))
	}
}
