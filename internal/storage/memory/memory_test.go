package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

func newStory() *types.Story {
	return &types.Story{
		Title:      types.Localized{types.LanguageEnglish: "Clean water", types.LanguageKinyarwanda: "Amazi meza"},
		Body:       types.Localized{types.LanguageEnglish: "Body", types.LanguageKinyarwanda: "Umubiri"},
		AuthorName: "Aline",
		AuthorRole: types.AuthorRoleStaff,
		Language:   types.DefaultLanguage,
	}
}

func TestSaveInsertsAndVersions(t *testing.T) {
	ctx := context.Background()
	m := New()

	created, err := m.SaveStory(ctx, newStory())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.CreatedAt.IsZero())

	created.Media = append(created.Media, media.Item{PublicID: "p1", Kind: media.KindImage})
	updated, err := m.SaveStory(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = m.SaveStory(ctx, created)
	assert.ErrorIs(t, err, storage.ErrVersionConflict, "a save carrying a stale version is rejected")

	found, err := m.FindStoryByID(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Len(t, found.Media, 1)
}

func TestFindReturnsIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	m := New()
	created, err := m.SaveStory(ctx, newStory())
	require.NoError(t, err)

	found, err := m.FindStoryByID(ctx, created.ID, false)
	require.NoError(t, err)
	found.Title[types.LanguageEnglish] = "changed"

	again, err := m.FindStoryByID(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Clean water", again.Title[types.LanguageEnglish])
}

func TestSaveKeepsCounters(t *testing.T) {
	ctx := context.Background()
	m := New()
	created, err := m.SaveStory(ctx, newStory())
	require.NoError(t, err)

	require.NoError(t, m.IncrementViewCount(ctx, created.ID))
	shares, err := m.IncrementShareCount(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), shares)

	created.ViewCount = 0
	saved, err := m.SaveStory(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ViewCount)
	assert.Equal(t, int64(1), saved.ShareCount)
}

func TestRelationsAndDelete(t *testing.T) {
	ctx := context.Background()
	m := New()
	m.AddProgram("prog-1", "School feeding")

	s := newStory()
	pid := "prog-1"
	s.ProgramID = &pid
	created, err := m.SaveStory(ctx, s)
	require.NoError(t, err)

	bare, err := m.FindStoryByID(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Nil(t, bare.Program)

	full, err := m.FindStoryByID(ctx, created.ID, true)
	require.NoError(t, err)
	require.NotNil(t, full.Program)
	assert.Equal(t, "School feeding", full.Program.Name)

	_, err = m.FindBeneficiary(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ids, err := m.ListStoryIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids)

	require.NoError(t, m.DeleteStory(ctx, created.ID))
	assert.ErrorIs(t, m.DeleteStory(ctx, created.ID), storage.ErrNotFound)
	_, err = m.FindStoryByID(ctx, created.ID, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
