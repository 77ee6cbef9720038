package payload

import (
	"encoding/json"
	"strings"

	"github.com/princekumarofficial/impact-stories/internal/apperr"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

// residue left behind by double-encoded JSON such as "[\"video\"]"
var kindResidue = strings.NewReplacer(`"`, "", `'`, "", "[", "", "]", "", `\`, "")

// cleanKind strips encoding residue and classifies the token as video or image.
func cleanKind(s string) string {
	token := strings.ToLower(strings.TrimSpace(kindResidue.Replace(s)))
	if strings.HasPrefix(token, "vid") {
		return string(media.KindVideo)
	}
	return string(media.KindImage)
}

// unwrapCaption turns an element like ["x"] into x; anything else is kept literally.
func unwrapCaption(s string) string {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return s
	}
	decoded, ok := decodeJSON(s)
	inner, isArray := decoded.([]any)
	if !ok || !isArray || len(inner) != 1 {
		return s
	}
	return strings.TrimSpace(stringify(inner[0]))
}

// ParseMediaKinds normalizes a mediaTypes field.
func ParseMediaKinds(raw any) []media.Kind {
	tokens := NormalizeStringArray(raw, cleanKind)
	kinds := make([]media.Kind, len(tokens))
	for i, t := range tokens {
		kinds[i] = media.Kind(t)
	}
	return kinds
}

// ParseCaptions normalizes a captions field.
func ParseCaptions(raw any) []string {
	return NormalizeStringArray(raw, unwrapCaption)
}

// ParseIDs normalizes an id list such as removeMedia, dropping blanks and repeats.
func ParseIDs(raw any) []string {
	tokens := NormalizeStringArray(raw, nil)
	seen := make(map[string]struct{}, len(tokens))
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		ids = append(ids, t)
	}
	return ids
}

// ParseTags normalizes a metadata tags field, dropping blanks.
func ParseTags(raw any) []string {
	tokens := NormalizeStringArray(raw, nil)
	tags := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// AlignKinds returns exactly len(files) kinds. Missing entries are inferred from
// each remaining file's mime type; extra entries are dropped.
func AlignKinds(kinds []media.Kind, files []media.File) []media.Kind {
	out := make([]media.Kind, len(files))
	for i, f := range files {
		if i < len(kinds) {
			out[i] = kinds[i]
			continue
		}
		out[i] = media.KindFromMimeType(f.ContentType)
	}
	return out
}

// AlignCaptions returns exactly n captions, padding with empty strings.
func AlignCaptions(captions []string, n int) []string {
	out := make([]string, n)
	copy(out, captions)
	return out
}

// AlignMedia normalizes mediaTypes and captions and aligns both to files.
func AlignMedia(files []media.File, rawKinds, rawCaptions any) ([]media.Kind, []string) {
	kinds := AlignKinds(ParseMediaKinds(rawKinds), files)
	captions := AlignCaptions(ParseCaptions(rawCaptions), len(files))
	return kinds, captions
}

// ParseCaptionUpdates decodes an updateMedia field. Unlike the advisory fields it
// must be a well-formed JSON array of {publicId, caption}; anything else is a
// validation error. Repeated form fields must each hold such an array.
func ParseCaptionUpdates(raw any) ([]media.CaptionUpdate, error) {
	var updates []media.CaptionUpdate

	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		if err := decodeUpdates([]byte(v), &updates); err != nil {
			return nil, err
		}
	case json.RawMessage:
		if err := decodeUpdates(v, &updates); err != nil {
			return nil, err
		}
	case []string:
		for _, part := range v {
			var chunk []media.CaptionUpdate
			if err := decodeUpdates([]byte(part), &chunk); err != nil {
				return nil, err
			}
			updates = append(updates, chunk...)
		}
	case []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, apperr.Validation("updateMedia must be a JSON array of {publicId, caption}")
		}
		if err := decodeUpdates(b, &updates); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validation("updateMedia must be a JSON array of {publicId, caption}")
	}

	for i := range updates {
		updates[i].PublicID = strings.TrimSpace(updates[i].PublicID)
		if updates[i].PublicID == "" {
			return nil, apperr.Validationf("updateMedia[%d]: publicId is required", i)
		}
	}
	return updates, nil
}

func decodeUpdates(b []byte, into *[]media.CaptionUpdate) error {
	if err := json.Unmarshal(b, into); err != nil {
		return apperr.Validationf("updateMedia must be a JSON array of {publicId, caption}: %v", err)
	}
	return nil
}
