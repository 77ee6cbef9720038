package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

type Language string

const (
	LanguageEnglish     Language = "en"
	LanguageKinyarwanda Language = "rw"

	DefaultLanguage = LanguageEnglish
)

// Languages is the closed set every localized field must cover
var Languages = []Language{LanguageEnglish, LanguageKinyarwanda}

func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

// Localized maps a language code to its text
type Localized map[Language]string

func (l Localized) Clone() Localized {
	if l == nil {
		return nil
	}
	out := make(Localized, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

type AuthorRole string

const (
	AuthorRoleBeneficiary AuthorRole = "beneficiary"
	AuthorRoleStaff       AuthorRole = "staff"
	AuthorRoleVolunteer   AuthorRole = "volunteer"
	AuthorRolePartner     AuthorRole = "partner"
	AuthorRoleDonor       AuthorRole = "donor"
)

func (r AuthorRole) Valid() bool {
	switch r {
	case AuthorRoleBeneficiary, AuthorRoleStaff, AuthorRoleVolunteer, AuthorRolePartner, AuthorRoleDonor:
		return true
	}
	return false
}

const dateLayout = "2006-01-02"

// Date is a calendar date carried as midnight UTC
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or RFC3339
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsAfterDay reports whether d falls on a later calendar day than t
func (d Date) IsAfterDay(t time.Time) bool {
	return d.Time.After(NewDate(t).Time)
}

type Metadata struct {
	Tags            []string `json:"tags"`
	Location        string   `json:"location,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
}

// Reference is a resolved back-reference to an external aggregate
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Story is the bilingual content record with its ordered media list
type Story struct {
	ID            string       `json:"id"`
	Title         Localized    `json:"title"`
	Body          Localized    `json:"body"`
	AuthorName    string       `json:"author_name"`
	AuthorRole    AuthorRole   `json:"author_role"`
	ProgramID     *string      `json:"program_id"`
	Program       *Reference   `json:"program,omitempty"`
	BeneficiaryID *string      `json:"beneficiary_id"`
	Beneficiary   *Reference   `json:"beneficiary,omitempty"`
	Media         []media.Item `json:"media"`
	IsFeatured    bool         `json:"is_featured"`
	IsPublished   bool         `json:"is_published"`
	PublishedDate Date         `json:"published_date"`
	Language      Language     `json:"language"`
	ViewCount     int64        `json:"view_count"`
	ShareCount    int64        `json:"share_count"`
	Metadata      *Metadata    `json:"metadata,omitempty"`
	Version       int          `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it without aliasing a store's state
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	out := *s
	out.Title = s.Title.Clone()
	out.Body = s.Body.Clone()
	out.ProgramID = cloneString(s.ProgramID)
	out.BeneficiaryID = cloneString(s.BeneficiaryID)
	if s.Program != nil {
		p := *s.Program
		out.Program = &p
	}
	if s.Beneficiary != nil {
		b := *s.Beneficiary
		out.Beneficiary = &b
	}
	if s.Media != nil {
		out.Media = append([]media.Item(nil), s.Media...)
	}
	if s.Metadata != nil {
		m := *s.Metadata
		m.Tags = append([]string(nil), s.Metadata.Tags...)
		out.Metadata = &m
	}
	return &out
}

// FindMedia returns the index of the item with the given publicId, or -1
func (s *Story) FindMedia(publicID string) int {
	for i, item := range s.Media {
		if item.PublicID == publicID {
			return i
		}
	}
	return -1
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// MetadataPatch carries a metadata write; Tags stays raw so it can go through the array normalizer
type MetadataPatch struct {
	Tags            any      `json:"tags"`
	Location        *string  `json:"location"`
	DurationSeconds *float64 `json:"durationSeconds"`
}

// NullableString distinguishes an absent field from an explicit empty/null one
type NullableString struct {
	Set   bool
	Value string
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = ""
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

// Clears reports whether the field was sent to drop the reference
func (n NullableString) Clears() bool {
	v := strings.TrimSpace(n.Value)
	return n.Set && (v == "" || v == "null")
}

type CreateStoryRequest struct {
	Title         Localized      `json:"title" validate:"required"`
	Body          Localized      `json:"body" validate:"required"`
	AuthorName    string         `json:"authorName" validate:"required"`
	AuthorRole    AuthorRole     `json:"authorRole" validate:"required,oneof=beneficiary staff volunteer partner donor"`
	ProgramID     string         `json:"programId"`
	BeneficiaryID string         `json:"beneficiaryId"`
	IsFeatured    bool           `json:"isFeatured"`
	IsPublished   bool           `json:"isPublished"`
	PublishedDate *Date          `json:"publishedDate"`
	Language      Language       `json:"language" validate:"omitempty,oneof=en rw"`
	Metadata      *MetadataPatch `json:"metadata"`

	Files      []media.File `json:"-"`
	MediaTypes any          `json:"mediaTypes"`
	Captions   any          `json:"captions"`
}

type UpdateStoryRequest struct {
	Title         Localized      `json:"title"`
	Body          Localized      `json:"body"`
	AuthorName    *string        `json:"authorName"`
	AuthorRole    *AuthorRole    `json:"authorRole"`
	ProgramID     NullableString `json:"programId"`
	BeneficiaryID NullableString `json:"beneficiaryId"`
	IsFeatured    *bool          `json:"isFeatured"`
	IsPublished   *bool          `json:"isPublished"`
	PublishedDate *Date          `json:"publishedDate"`
	Language      *Language      `json:"language"`
	Metadata      *MetadataPatch `json:"metadata"`

	Files       []media.File `json:"-"`
	MediaTypes  any          `json:"mediaTypes"`
	Captions    any          `json:"captions"`
	UpdateMedia any          `json:"updateMedia"`
	RemoveMedia any          `json:"removeMedia"`
}

// HasFieldEdits reports whether the request touches any scalar or structured field
func (r *UpdateStoryRequest) HasFieldEdits() bool {
	return r.Title != nil || r.Body != nil || r.AuthorName != nil || r.AuthorRole != nil ||
		r.ProgramID.Set || r.BeneficiaryID.Set || r.IsFeatured != nil || r.IsPublished != nil ||
		r.PublishedDate != nil || r.Language != nil || r.Metadata != nil
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

type CaptionUpdateRequest struct {
	PublicID string `json:"publicId" validate:"required"`
	Caption  string `json:"caption"`
}

// Outcome is the per-item result of a best-effort batch operation
type Outcome string

const (
	OutcomeDeleted      Outcome = "deleted"
	OutcomeRemoved      Outcome = "removed"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeStorageError Outcome = "storage_error"
	OutcomeFailed       Outcome = "failed"
)

type ItemResult struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// BulkDeleteResult keeps the success count alongside every id's outcome
type BulkDeleteResult struct {
	Deleted int          `json:"deleted"`
	Results []ItemResult `json:"results"`
}

// ReconcileReport describes what a verify-and-repair pass changed for one story
type ReconcileReport struct {
	StoryID              string   `json:"story_id"`
	OrphanObjectsDeleted []string `json:"orphan_objects_deleted"`
	DanglingMediaDropped []string `json:"dangling_media_dropped"`
	ThumbnailsRederived  []string `json:"thumbnails_rederived,omitempty"`
	Errors               []string `json:"errors,omitempty"`
}

// Changed reports whether the pass deleted or dropped anything
func (r *ReconcileReport) Changed() bool {
	return len(r.OrphanObjectsDeleted) > 0 || len(r.DanglingMediaDropped) > 0 || len(r.ThumbnailsRederived) > 0
}
