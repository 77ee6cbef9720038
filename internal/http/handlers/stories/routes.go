package stories

import (
	"net/http"

	storiesService "github.com/princekumarofficial/impact-stories/internal/services/stories"
)

// Register mounts the story routes on mux. Writes pass through protect, which
// carries authentication and rate limiting; reads and shares stay public.
func Register(mux *http.ServeMux, svc *storiesService.Service, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(h http.Handler) http.Handler { return h }
	}
	write := func(h http.HandlerFunc) http.Handler { return protect(h) }

	mux.HandleFunc("GET /stories/{id}", GetStory(svc))
	mux.HandleFunc("POST /stories/{id}/share", ShareStory(svc))

	mux.Handle("POST /stories", write(PostStory(svc)))
	mux.Handle("POST /stories/bulk-delete", write(BulkDeleteStories(svc)))
	mux.Handle("PATCH /stories/{id}", write(PatchStory(svc)))
	mux.Handle("DELETE /stories/{id}", write(DeleteStory(svc)))
	mux.Handle("POST /stories/{id}/media", write(AddMedia(svc)))
	mux.Handle("PATCH /stories/{id}/media", write(UpdateMediaCaption(svc)))
	mux.Handle("DELETE /stories/{id}/media/{publicId...}", write(RemoveMedia(svc)))
	mux.Handle("POST /stories/{id}/reconcile", write(ReconcileStory(svc)))
}
