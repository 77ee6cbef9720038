package stories

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/impact-stories/internal/http/middleware"
	mediasvc "github.com/princekumarofficial/impact-stories/internal/services/media"
	storiesService "github.com/princekumarofficial/impact-stories/internal/services/stories"
	"github.com/princekumarofficial/impact-stories/internal/storage/memory"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
	"github.com/princekumarofficial/impact-stories/internal/utils/jwt"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)

type testServer struct {
	mux     *http.ServeMux
	store   *memory.Memory
	objects *mediasvc.MemoryStore
}

func newTestServer(t *testing.T, protect func(http.Handler) http.Handler) *testServer {
	t.Helper()
	store := memory.New()
	store.AddProgram("prog-1", "School feeding")
	objects := mediasvc.NewMemoryStore("https://media.test")

	svc := storiesService.NewService(store, objects, storiesService.Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		BackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})

	mux := http.NewServeMux()
	Register(mux, svc, protect)
	return &testServer{mux: mux, store: store, objects: objects}
}

type envelope struct {
	Status  string          `json:"status"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeStory(t *testing.T, env envelope) types.Story {
	t.Helper()
	var story types.Story
	require.NoError(t, json.Unmarshal(env.Data, &story))
	return story
}

type part struct {
	field, name, contentType string
	data                     []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string][]string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(name, v))
		}
	}
	for _, p := range parts {
		var w io.Writer
		var err error
		if p.contentType == "" {
			w, err = mw.CreateFormFile(p.field, p.name)
		} else {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.name+`"`)
			h.Set("Content-Type", p.contentType)
			w, err = mw.CreatePart(h)
		}
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (s *testServer) createStory(t *testing.T, parts ...part) types.Story {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/stories", map[string][]string{
		"title[en]":  {"Clean water"},
		"title[rw]":  {"Amazi meza"},
		"body":       {`{"en":"A new well","rw":"Iriba rishya"}`},
		"authorName": {"Aline"},
		"authorRole": {"staff"},
		"programId":  {"prog-1"},
		"captions":   {`["Opening day"]`},
		"metadata":   {`{"tags":"water, health","location":"Musanze"}`},
	}, parts...)
	rec, env := s.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	return decodeStory(t, env)
}

func TestPostStoryMultipart(t *testing.T) {
	s := newTestServer(t, nil)
	story := s.createStory(t, part{field: "files", name: "well.png", data: pngBytes})

	assert.Equal(t, "Clean water", story.Title["en"])
	assert.Equal(t, "Iriba rishya", story.Body["rw"])
	require.NotNil(t, story.ProgramID)
	assert.Equal(t, "prog-1", *story.ProgramID)
	require.NotNil(t, story.Program)
	assert.Equal(t, "School feeding", story.Program.Name)
	require.NotNil(t, story.Metadata)
	assert.Equal(t, []string{"water", "health"}, story.Metadata.Tags)

	require.Len(t, story.Media, 1)
	item := story.Media[0]
	assert.Equal(t, media.KindImage, item.Kind, "the generic part type is replaced by the sniffed one")
	assert.Equal(t, "Opening day", item.Caption)
	assert.True(t, strings.HasPrefix(item.PublicID, mediasvc.StoryFolder(story.ID)+"/"))
	assert.True(t, strings.HasSuffix(item.PublicID, ".png"))
	assert.True(t, s.objects.Has(item.PublicID))
}

func TestPostStoryRejections(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("missing required fields", func(t *testing.T) {
		rec, env := s.do(t, jsonRequest(http.MethodPost, "/stories", `{"title":{"en":"t","rw":"t"}}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.Error, "Body")
	})

	t.Run("empty body", func(t *testing.T) {
		rec, _ := s.do(t, jsonRequest(http.MethodPost, "/stories", ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported file type", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/stories", map[string][]string{
			"title":      {`{"en":"t","rw":"t"}`},
			"body":       {`{"en":"b","rw":"b"}`},
			"authorName": {"Aline"},
			"authorRole": {"donor"},
		}, part{field: "media", name: "notes.txt", contentType: "text/plain", data: []byte("hello")})
		rec, _ := s.do(t, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Equal(t, 0, s.objects.Len())
	})

	t.Run("unknown program", func(t *testing.T) {
		rec, _ := s.do(t, jsonRequest(http.MethodPost, "/stories",
			`{"title":{"en":"t","rw":"t"},"body":{"en":"b","rw":"b"},"authorName":"A","authorRole":"staff","programId":"nope"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetAndShareStory(t *testing.T) {
	s := newTestServer(t, nil)
	story := s.createStory(t)

	rec, env := s.do(t, httptest.NewRequest(http.MethodGet, "/stories/"+story.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, story.ID, decodeStory(t, env).ID)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/stories/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = s.do(t, httptest.NewRequest(http.MethodPost, "/stories/"+story.ID+"/share", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var shared struct {
		ShareCount int64 `json:"share_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &shared))
	assert.Equal(t, int64(1), shared.ShareCount)
}

func TestPatchStory(t *testing.T) {
	s := newTestServer(t, nil)
	story := s.createStory(t,
		part{field: "files", name: "a.png", data: pngBytes},
		part{field: "files", name: "b.png", data: pngBytes},
	)
	removed := story.Media[0].PublicID
	kept := story.Media[1].PublicID

	t.Run("json field edit merges languages and clears the program", func(t *testing.T) {
		rec, env := s.do(t, jsonRequest(http.MethodPatch, "/stories/"+story.ID,
			`{"title":{"en":"Clean water for all"},"programId":null}`))
		require.Equal(t, http.StatusOK, rec.Code, env.Error)

		updated := decodeStory(t, env)
		assert.Equal(t, "Clean water for all", updated.Title["en"])
		assert.Equal(t, "Amazi meza", updated.Title["rw"])
		assert.Nil(t, updated.ProgramID)
	})

	t.Run("multipart removal, caption edit and append", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPatch, "/stories/"+story.ID, map[string][]string{
			"removeMedia": {removed},
			"updateMedia": {`[{"publicId":"` + kept + `","caption":"Kept"}]`},
			"isFeatured":  {"true"},
		}, part{field: "files", name: "c.png", contentType: "image/png", data: pngBytes})
		rec, env := s.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)

		updated := decodeStory(t, env)
		assert.True(t, updated.IsFeatured)
		require.Len(t, updated.Media, 2)
		assert.Equal(t, kept, updated.Media[0].PublicID)
		assert.Equal(t, "Kept", updated.Media[0].Caption)
		assert.Equal(t, "Story image 2", updated.Media[1].Caption)
		assert.False(t, s.objects.Has(removed))
	})

	t.Run("malformed updateMedia", func(t *testing.T) {
		rec, _ := s.do(t, jsonRequest(http.MethodPatch, "/stories/"+story.ID, `{"updateMedia":"not json"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMediaSubResources(t *testing.T) {
	s := newTestServer(t, nil)
	story := s.createStory(t, part{field: "files", name: "a.png", data: pngBytes})
	first := story.Media[0].PublicID

	req := multipartRequest(t, http.MethodPost, "/stories/"+story.ID+"/media", map[string][]string{
		"captions": {"Second"},
	}, part{field: "media", name: "b.png", data: pngBytes})
	rec, env := s.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	require.Len(t, decodeStory(t, env).Media, 2)

	rec, env = s.do(t, jsonRequest(http.MethodPatch, "/stories/"+story.ID+"/media",
		`{"publicId":"`+first+`","caption":"First"}`))
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.Equal(t, "First", decodeStory(t, env).Media[0].Caption)

	rec, _ = s.do(t, jsonRequest(http.MethodPatch, "/stories/"+story.ID+"/media", `{"caption":"x"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, httptest.NewRequest(http.MethodDelete, "/stories/"+story.ID+"/media/"+first, nil))
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.Len(t, decodeStory(t, env).Media, 1)
	assert.False(t, s.objects.Has(first))

	rec, _ = s.do(t, httptest.NewRequest(http.MethodDelete, "/stories/"+story.ID+"/media/"+first, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAndBulkDelete(t *testing.T) {
	s := newTestServer(t, nil)
	one := s.createStory(t, part{field: "files", name: "a.png", data: pngBytes})
	two := s.createStory(t)
	three := s.createStory(t)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodDelete, "/stories/"+one.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.objects.Len())

	rec, env := s.do(t, jsonRequest(http.MethodPost, "/stories/bulk-delete",
		`{"ids":["`+two.ID+`","`+one.ID+`","`+three.ID+`"]}`))
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	var result types.BulkDeleteResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Deleted)
	require.Len(t, result.Results, 3)
	assert.Equal(t, types.OutcomeNotFound, result.Results[1].Outcome)

	rec, _ = s.do(t, jsonRequest(http.MethodPost, "/stories/bulk-delete", `{"ids":[]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcileStory(t *testing.T) {
	s := newTestServer(t, nil)
	story := s.createStory(t, part{field: "files", name: "a.png", data: pngBytes})
	lost := story.Media[0].PublicID
	require.NoError(t, s.objects.Delete(context.Background(), lost))

	rec, env := s.do(t, httptest.NewRequest(http.MethodPost, "/stories/"+story.ID+"/reconcile", nil))
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	var report types.ReconcileReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, []string{lost}, report.DanglingMediaDropped)
}

func TestWritesRequireAuthentication(t *testing.T) {
	s := newTestServer(t, middleware.AuthMiddleware("secret"))

	rec, _ := s.do(t, jsonRequest(http.MethodPost, "/stories", `{}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.CreateToken("editor-1", "secret")
	require.NoError(t, err)
	req := jsonRequest(http.MethodPost, "/stories",
		`{"title":{"en":"t","rw":"t"},"body":{"en":"b","rw":"b"},"authorName":"A","authorRole":"volunteer"}`)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, env := s.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)

	story := decodeStory(t, env)
	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/stories/"+story.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay public")
}
