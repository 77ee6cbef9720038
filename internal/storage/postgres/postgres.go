package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/princekumarofficial/impact-stories/internal/config"
	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	slog.Info("Connected to Postgres database")

	// Create tables if they don't exist
	pg := &Postgres{Db: db}
	if err := pg.CreateTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pg, nil
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS beneficiaries (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS stories (
			id TEXT PRIMARY KEY,
			title JSONB NOT NULL,
			body JSONB NOT NULL,
			author_name TEXT NOT NULL,
			author_role VARCHAR(32) NOT NULL CHECK (author_role IN ('beneficiary','staff','volunteer','partner','donor')),
			program_id TEXT REFERENCES programs(id) ON DELETE SET NULL,
			beneficiary_id TEXT REFERENCES beneficiaries(id) ON DELETE SET NULL,
			media JSONB NOT NULL DEFAULT '[]'::jsonb,
			is_featured BOOLEAN NOT NULL DEFAULT FALSE,
			is_published BOOLEAN NOT NULL DEFAULT FALSE,
			published_date DATE NOT NULL,
			language VARCHAR(8) NOT NULL DEFAULT 'en',
			view_count BIGINT NOT NULL DEFAULT 0 CHECK (view_count >= 0),
			share_count BIGINT NOT NULL DEFAULT 0 CHECK (share_count >= 0),
			tags TEXT[],
			location TEXT,
			duration_seconds DOUBLE PRECISION,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_stories_published ON stories(is_published, published_date DESC);`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

const storyColumns = `
	s.id, s.title, s.body, s.author_name, s.author_role, s.program_id, s.beneficiary_id,
	s.media, s.is_featured, s.is_published, s.published_date, s.language,
	s.view_count, s.share_count, s.tags, s.location, s.duration_seconds,
	s.version, s.created_at, s.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner, extra ...any) (*types.Story, error) {
	var (
		story         types.Story
		title, body   []byte
		mediaJSON     []byte
		programID     sql.NullString
		beneficiaryID sql.NullString
		publishedDate time.Time
		tags          pq.StringArray
		location      sql.NullString
		duration      sql.NullFloat64
	)

	dest := []any{
		&story.ID, &title, &body, &story.AuthorName, &story.AuthorRole, &programID, &beneficiaryID,
		&mediaJSON, &story.IsFeatured, &story.IsPublished, &publishedDate, &story.Language,
		&story.ViewCount, &story.ShareCount, &tags, &location, &duration,
		&story.Version, &story.CreatedAt, &story.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(title, &story.Title); err != nil {
		return nil, fmt.Errorf("decode title: %w", err)
	}
	if err := json.Unmarshal(body, &story.Body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	story.Media = []media.Item{}
	if len(mediaJSON) > 0 {
		if err := json.Unmarshal(mediaJSON, &story.Media); err != nil {
			return nil, fmt.Errorf("decode media: %w", err)
		}
	}
	if programID.Valid {
		story.ProgramID = &programID.String
	}
	if beneficiaryID.Valid {
		story.BeneficiaryID = &beneficiaryID.String
	}
	story.PublishedDate = types.NewDate(publishedDate)

	if tags != nil || location.Valid || duration.Valid {
		story.Metadata = &types.Metadata{
			Tags:            []string(tags),
			Location:        location.String,
			DurationSeconds: duration.Float64,
		}
	}

	return &story, nil
}

func (p *Postgres) FindStoryByID(ctx context.Context, id string, withRelations bool) (*types.Story, error) {
	if !withRelations {
		query := `SELECT ` + storyColumns + ` FROM stories s WHERE s.id = $1`
		story, err := scanStory(p.Db.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return story, err
	}

	query := `
	SELECT ` + storyColumns + `, p.name, b.name
	FROM stories s
	LEFT JOIN programs p ON p.id = s.program_id
	LEFT JOIN beneficiaries b ON b.id = s.beneficiary_id
	WHERE s.id = $1
	`

	var programName, beneficiaryName sql.NullString
	story, err := scanStory(p.Db.QueryRowContext(ctx, query, id), &programName, &beneficiaryName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if story.ProgramID != nil && programName.Valid {
		story.Program = &types.Reference{ID: *story.ProgramID, Name: programName.String}
	}
	if story.BeneficiaryID != nil && beneficiaryName.Valid {
		story.Beneficiary = &types.Reference{ID: *story.BeneficiaryID, Name: beneficiaryName.String}
	}
	return story, nil
}

// storyArgs returns the writable columns in the order used by insert and update
func storyArgs(story *types.Story) ([]any, error) {
	title, err := json.Marshal(story.Title)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(story.Body)
	if err != nil {
		return nil, err
	}
	items := story.Media
	if items == nil {
		items = []media.Item{}
	}
	mediaJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	var (
		tags     any
		location sql.NullString
		duration sql.NullFloat64
	)
	if story.Metadata != nil {
		t := story.Metadata.Tags
		if t == nil {
			t = []string{}
		}
		tags = pq.Array(t)
		location = sql.NullString{String: story.Metadata.Location, Valid: true}
		duration = sql.NullFloat64{Float64: story.Metadata.DurationSeconds, Valid: true}
	}

	return []any{
		string(title), string(body), story.AuthorName, string(story.AuthorRole),
		nullable(story.ProgramID), nullable(story.BeneficiaryID), string(mediaJSON),
		story.IsFeatured, story.IsPublished, story.PublishedDate.Time, string(story.Language),
		tags, location, duration,
	}, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (p *Postgres) SaveStory(ctx context.Context, story *types.Story) (*types.Story, error) {
	args, err := storyArgs(story)
	if err != nil {
		return nil, fmt.Errorf("encode story: %w", err)
	}

	if story.Version == 0 {
		id := story.ID
		if id == "" {
			id = uuid.New().String()
		}
		query := `
		INSERT INTO stories (
			title, body, author_name, author_role, program_id, beneficiary_id, media,
			is_featured, is_published, published_date, language, tags, location, duration_seconds,
			id, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
		RETURNING id, version, view_count, share_count, created_at, updated_at
		`
		saved := story.Clone()
		err := p.Db.QueryRowContext(ctx, query, append(args, id)...).
			Scan(&saved.ID, &saved.Version, &saved.ViewCount, &saved.ShareCount, &saved.CreatedAt, &saved.UpdatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return nil, storage.ErrVersionConflict
			}
			return nil, err
		}
		saved.Program, saved.Beneficiary = nil, nil
		return saved, nil
	}

	query := `
	UPDATE stories SET
		title = $1, body = $2, author_name = $3, author_role = $4, program_id = $5, beneficiary_id = $6,
		media = $7, is_featured = $8, is_published = $9, published_date = $10, language = $11,
		tags = $12, location = $13, duration_seconds = $14,
		version = version + 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = $15 AND version = $16
	RETURNING version, view_count, share_count, created_at, updated_at
	`
	saved := story.Clone()
	err = p.Db.QueryRowContext(ctx, query, append(args, story.ID, story.Version)...).
		Scan(&saved.Version, &saved.ViewCount, &saved.ShareCount, &saved.CreatedAt, &saved.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := p.Db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM stories WHERE id = $1)`, story.ID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, storage.ErrNotFound
		}
		return nil, storage.ErrVersionConflict
	}
	if err != nil {
		return nil, err
	}
	saved.Program, saved.Beneficiary = nil, nil
	return saved, nil
}

func (p *Postgres) DeleteStory(ctx context.Context, id string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListStoryIDs(ctx context.Context) ([]string, error) {
	rows, err := p.Db.QueryContext(ctx, `SELECT id FROM stories ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Postgres) IncrementViewCount(ctx context.Context, id string) error {
	res, err := p.Db.ExecContext(ctx, `UPDATE stories SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *Postgres) IncrementShareCount(ctx context.Context, id string) (int64, error) {
	var count int64
	err := p.Db.QueryRowContext(ctx,
		`UPDATE stories SET share_count = share_count + 1 WHERE id = $1 RETURNING share_count`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	return count, err
}

func (p *Postgres) FindProgram(ctx context.Context, id string) (*types.Reference, error) {
	return p.findReference(ctx, `SELECT id, name FROM programs WHERE id = $1`, id)
}

func (p *Postgres) FindBeneficiary(ctx context.Context, id string) (*types.Reference, error) {
	return p.findReference(ctx, `SELECT id, name FROM beneficiaries WHERE id = $1`, id)
}

func (p *Postgres) findReference(ctx context.Context, query, id string) (*types.Reference, error) {
	var ref types.Reference
	err := p.Db.QueryRowContext(ctx, query, id).Scan(&ref.ID, &ref.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
