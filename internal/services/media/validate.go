package media

import (
	"strings"

	"github.com/princekumarofficial/impact-stories/internal/apperr"
	"github.com/princekumarofficial/impact-stories/internal/config"
	mediatypes "github.com/princekumarofficial/impact-stories/internal/types/media"
)

const (
	DefaultMaxImageSize int64 = 10 << 20
	DefaultMaxVideoSize int64 = 100 << 20
)

var (
	DefaultImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	DefaultVideoTypes = []string{"video/mp4", "video/quicktime", "video/webm"}
)

// Validator checks a single file against the allow-list and size ceiling of its declared kind
type Validator struct {
	imageTypes   map[string]struct{}
	videoTypes   map[string]struct{}
	maxImageSize int64
	maxVideoSize int64
}

// NewValidator builds a validator from the media config, falling back to the defaults
func NewValidator(cfg config.Media) *Validator {
	v := &Validator{
		imageTypes:   toSet(cfg.AllowedImageTypes, DefaultImageTypes),
		videoTypes:   toSet(cfg.AllowedVideoTypes, DefaultVideoTypes),
		maxImageSize: cfg.MaxImageSize,
		maxVideoSize: cfg.MaxVideoSize,
	}
	if v.maxImageSize <= 0 {
		v.maxImageSize = DefaultMaxImageSize
	}
	if v.maxVideoSize <= 0 {
		v.maxVideoSize = DefaultMaxVideoSize
	}
	return v
}

func toSet(values, fallback []string) map[string]struct{} {
	if len(values) == 0 {
		values = fallback
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalizeMime(v)] = struct{}{}
	}
	return set
}

// normalizeMime drops parameters such as "; charset=..." and lower-cases the type
func normalizeMime(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Validate returns a classified validation error, or nil if the file may be stored as kind
func (v *Validator) Validate(file *mediatypes.File, kind mediatypes.Kind) error {
	if file == nil || file.Open == nil {
		return apperr.Validation("media file is required")
	}
	if file.Size <= 0 {
		return apperr.Validationf("media file %q is empty", file.Name)
	}

	contentType := normalizeMime(file.ContentType)

	switch kind {
	case mediatypes.KindImage:
		if _, ok := v.imageTypes[contentType]; !ok {
			return apperr.UnsupportedMediaType("unsupported image type %q for %q", file.ContentType, file.Name)
		}
		if file.Size > v.maxImageSize {
			return apperr.PayloadTooLarge("image %q is %d bytes, limit is %d", file.Name, file.Size, v.maxImageSize)
		}
	case mediatypes.KindVideo:
		if _, ok := v.videoTypes[contentType]; !ok {
			return apperr.UnsupportedMediaType("unsupported video type %q for %q", file.ContentType, file.Name)
		}
		if file.Size > v.maxVideoSize {
			return apperr.PayloadTooLarge("video %q is %d bytes, limit is %d", file.Name, file.Size, v.maxVideoSize)
		}
	default:
		return apperr.Validationf("unknown media kind %q", kind)
	}

	return nil
}

// ValidateAll checks aligned files and kinds, stopping at the first failure
func (v *Validator) ValidateAll(files []mediatypes.File, kinds []mediatypes.Kind) error {
	for i := range files {
		if i >= len(kinds) {
			return apperr.Validationf("no media kind for file %d", i)
		}
		if err := v.Validate(&files[i], kinds[i]); err != nil {
			return err
		}
	}
	return nil
}
