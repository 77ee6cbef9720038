package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/types"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Postgres{Db: db}, mock
}

var storyRowColumns = []string{
	"id", "title", "body", "author_name", "author_role", "program_id", "beneficiary_id",
	"media", "is_featured", "is_published", "published_date", "language",
	"view_count", "share_count", "tags", "location", "duration_seconds",
	"version", "created_at", "updated_at",
}

func TestFindStoryByIDWithRelations(t *testing.T) {
	pg, mock := newMock(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(append(append([]string{}, storyRowColumns...), "program_name", "beneficiary_name")).
		AddRow(
			"s1", []byte(`{"en":"Water","rw":"Amazi"}`), []byte(`{"en":"Body","rw":"Umubiri"}`), "Aline", "staff",
			"prog-1", nil,
			[]byte(`[{"url":"u","public_id":"stories/s1/a.jpg","kind":"image","caption":"A","thumbnail_url":"u"}]`),
			true, false, now, "en",
			int64(3), int64(1), []byte(`{water,health}`), "Kigali", nil,
			2, now, now,
			"School feeding", nil,
		)
	mock.ExpectQuery("LEFT JOIN programs").WithArgs("s1").WillReturnRows(rows)

	story, err := pg.FindStoryByID(context.Background(), "s1", true)
	require.NoError(t, err)

	assert.Equal(t, "Amazi", story.Title[types.LanguageKinyarwanda])
	assert.Equal(t, types.AuthorRoleStaff, story.AuthorRole)
	require.Len(t, story.Media, 1)
	assert.Equal(t, "stories/s1/a.jpg", story.Media[0].PublicID)
	require.NotNil(t, story.Program)
	assert.Equal(t, "School feeding", story.Program.Name)
	assert.Nil(t, story.BeneficiaryID)
	require.NotNil(t, story.Metadata)
	assert.Equal(t, []string{"water", "health"}, story.Metadata.Tags)
	assert.Equal(t, "Kigali", story.Metadata.Location)
	assert.Equal(t, "2024-05-01", story.PublishedDate.String())
	assert.Equal(t, 2, story.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStoryByIDNotFound(t *testing.T) {
	pg, mock := newMock(t)
	mock.ExpectQuery("FROM stories s WHERE").WithArgs("missing").WillReturnRows(sqlmock.NewRows(storyRowColumns))

	_, err := pg.FindStoryByID(context.Background(), "missing", false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveStoryStaleVersion(t *testing.T) {
	pg, mock := newMock(t)
	story := &types.Story{
		ID:         "s1",
		Title:      types.Localized{"en": "t", "rw": "t"},
		Body:       types.Localized{"en": "b", "rw": "b"},
		AuthorName: "a",
		AuthorRole: types.AuthorRoleDonor,
		Language:   types.DefaultLanguage,
		Version:    4,
	}

	mock.ExpectQuery("UPDATE stories SET").
		WillReturnRows(sqlmock.NewRows([]string{"version", "view_count", "share_count", "created_at", "updated_at"}))
	mock.ExpectQuery(`SELECT EXISTS\(`).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := pg.SaveStory(context.Background(), story)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStoryInsert(t *testing.T) {
	pg, mock := newMock(t)
	now := time.Now().UTC()
	story := &types.Story{
		Title:      types.Localized{"en": "t", "rw": "t"},
		Body:       types.Localized{"en": "b", "rw": "b"},
		AuthorName: "a",
		AuthorRole: types.AuthorRoleVolunteer,
		Language:   types.DefaultLanguage,
		Metadata:   &types.Metadata{Location: "Huye"},
	}

	mock.ExpectQuery("INSERT INTO stories").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "view_count", "share_count", "created_at", "updated_at"}).
			AddRow("generated", 1, 0, 0, now, now))

	saved, err := pg.SaveStory(context.Background(), story)
	require.NoError(t, err)
	assert.Equal(t, "generated", saved.ID)
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, 0, story.Version, "the caller's copy is left untouched")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStoryMissing(t *testing.T) {
	pg, mock := newMock(t)
	mock.ExpectExec("DELETE FROM stories").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, pg.DeleteStory(context.Background(), "gone"), storage.ErrNotFound)
}

func TestIncrementShareCount(t *testing.T) {
	pg, mock := newMock(t)
	mock.ExpectQuery("share_count = share_count \\+ 1").WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"share_count"}).AddRow(int64(5)))

	n, err := pg.IncrementShareCount(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
