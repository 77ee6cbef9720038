package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/impact-stories/internal/apperr"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

func files(mimes ...string) []media.File {
	out := make([]media.File, len(mimes))
	for i, m := range mimes {
		out[i] = media.FromBytes("f", m, []byte("x"))
	}
	return out
}

func TestAlignKindsAlwaysMatchesFileCount(t *testing.T) {
	fs := files("image/png", "video/mp4", "video/webm", "image/gif")

	for k := 0; k <= 6; k++ {
		parsed := make([]media.Kind, k)
		for i := range parsed {
			parsed[i] = media.KindImage
		}
		for n := 0; n <= len(fs); n++ {
			got := AlignKinds(parsed, fs[:n])
			assert.Len(t, got, n, "k=%d n=%d", k, n)
		}
	}
}

func TestAlignKindsPadsFromMimeType(t *testing.T) {
	got := AlignKinds([]media.Kind{media.KindImage}, files("image/png", "video/mp4", "image/jpeg"))
	assert.Equal(t, []media.Kind{media.KindImage, media.KindVideo, media.KindImage}, got)
}

func TestAlignKindsTruncates(t *testing.T) {
	got := AlignKinds([]media.Kind{media.KindVideo, media.KindImage, media.KindVideo}, files("video/mp4"))
	assert.Equal(t, []media.Kind{media.KindVideo}, got)
}

func TestAlignCaptions(t *testing.T) {
	assert.Equal(t, []string{"A", "", ""}, AlignCaptions([]string{"A"}, 3))
	assert.Equal(t, []string{"A"}, AlignCaptions([]string{"A", "B"}, 1))
	assert.Empty(t, AlignCaptions([]string{"A"}, 0))
}

func TestAlignMedia(t *testing.T) {
	fs := files("image/jpeg", "video/mp4")

	kinds, captions := AlignMedia(fs, "image,video", `["A","B"]`)
	assert.Equal(t, []media.Kind{media.KindImage, media.KindVideo}, kinds)
	assert.Equal(t, []string{"A", "B"}, captions)

	kinds, captions = AlignMedia(fs, nil, "only one")
	assert.Equal(t, []media.Kind{media.KindImage, media.KindVideo}, kinds)
	assert.Equal(t, []string{"only one", ""}, captions)
}

func TestParseCaptionUpdates(t *testing.T) {
	updates, err := ParseCaptionUpdates(`[{"publicId":"p1","caption":"X"},{"publicId":" p2 ","caption":""}]`)
	require.NoError(t, err)
	assert.Equal(t, []media.CaptionUpdate{{PublicID: "p1", Caption: "X"}, {PublicID: "p2", Caption: ""}}, updates)

	updates, err = ParseCaptionUpdates([]string{`[{"publicId":"a","caption":"1"}]`, ` [{"publicId":"b","caption":"2"}] `})
	require.NoError(t, err)
	assert.Len(t, updates, 2)

	updates, err = ParseCaptionUpdates([]any{map[string]any{"publicId": "c", "caption": "3"}})
	require.NoError(t, err)
	assert.Equal(t, "c", updates[0].PublicID)

	updates, err = ParseCaptionUpdates(nil)
	require.NoError(t, err)
	assert.Nil(t, updates)
}

func TestParseCaptionUpdatesRejectsMalformedInput(t *testing.T) {
	bad := []any{
		`[{"publicId":"p1"`,
		`{"publicId":"p1","caption":"X"}`,
		`p1,p2`,
		`[{"caption":"no id"}]`,
		[]string{"not json"},
		[]string{`{"publicId":"p1","caption":"X"}`, `[{"publicId":"p2","caption":"Y"}]`},
		42,
	}
	for _, raw := range bad {
		_, err := ParseCaptionUpdates(raw)
		require.Error(t, err, "%v", raw)
		assert.True(t, apperr.IsValidation(err), "%v", raw)
	}
}
