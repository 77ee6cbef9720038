package stories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/princekumarofficial/impact-stories/internal/apperr"
	"github.com/princekumarofficial/impact-stories/internal/payload"
	"github.com/princekumarofficial/impact-stories/internal/types"
	"github.com/princekumarofficial/impact-stories/internal/types/media"
)

// maxMemory is how much of a multipart body is buffered before spilling to disk.
const maxMemory = 32 << 20

// fileFields are the multipart fields that carry uploads, in order.
var fileFields = []string{"files", "media"}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func decodeJSON(r *http.Request, into any) error {
	err := json.NewDecoder(r.Body).Decode(into)
	if errors.Is(err, io.EOF) {
		return apperr.Validation("request body cannot be empty")
	}
	if err != nil {
		return apperr.Validationf("invalid JSON body: %v", err)
	}
	return nil
}

func parseMultipart(r *http.Request) (*multipart.Form, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, apperr.Validationf("invalid multipart body: %v", err)
	}
	return r.MultipartForm, nil
}

// formValues returns the values sent under name or name[].
func formValues(form url.Values, name string) []string {
	values := append([]string{}, form[name]...)
	return append(values, form[name+"[]"]...)
}

func formString(form url.Values, name string) (string, bool) {
	values, ok := form[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// formLocalized accepts name as a JSON object or name[<lang>] keys.
func formLocalized(form url.Values, name string) (types.Localized, error) {
	if raw, ok := formString(form, name); ok {
		var value types.Localized
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, apperr.Validationf("%s must be a JSON object keyed by language", name)
		}
		return value, nil
	}

	var value types.Localized
	prefix := name + "["
	for key, values := range form {
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		if value == nil {
			value = types.Localized{}
		}
		lang := types.Language(strings.TrimSuffix(strings.TrimPrefix(key, prefix), "]"))
		value[lang] = values[0]
	}
	return value, nil
}

func formBool(form url.Values, name string) (*bool, error) {
	raw, ok := formString(form, name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperr.Validationf("%s must be a boolean", name)
	}
	return &v, nil
}

func formDate(form url.Values, name string) (*types.Date, error) {
	raw, ok := formString(form, name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := types.ParseDate(raw)
	if err != nil {
		return nil, apperr.Validationf("%s: %v", name, err)
	}
	return &d, nil
}

func formMetadata(form url.Values) (*types.MetadataPatch, error) {
	raw, ok := formString(form, "metadata")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var patch types.MetadataPatch
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return nil, apperr.Validation("metadata must be a JSON object")
	}
	return &patch, nil
}

func formNullable(form url.Values, name string) types.NullableString {
	raw, ok := formString(form, name)
	return types.NullableString{Set: ok, Value: raw}
}

// genericContentTypes are part headers that say nothing about the payload.
var genericContentTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// sniffContentType replaces a missing or generic part content type with the
// type detected from the file's leading bytes.
func sniffContentType(file *media.File) error {
	if !genericContentTypes[strings.ToLower(strings.TrimSpace(file.ContentType))] {
		return nil
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	mtype, err := mimetype.DetectReader(rc)
	if err != nil {
		return fmt.Errorf("detect type of %s: %w", file.Name, err)
	}
	file.ContentType = mtype.String()
	return nil
}

func formFiles(form *multipart.Form) ([]media.File, error) {
	var files []media.File
	for _, field := range fileFields {
		for _, fh := range form.File[field] {
			file := media.FromFileHeader(fh)
			if err := sniffContentType(&file); err != nil {
				return nil, err
			}
			files = append(files, file)
		}
	}
	return files, nil
}

func parseCreateRequest(r *http.Request) (*types.CreateStoryRequest, error) {
	if !isMultipart(r) {
		var req types.CreateStoryRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	form, err := parseMultipart(r)
	if err != nil {
		return nil, err
	}
	values := url.Values(form.Value)

	req := &types.CreateStoryRequest{
		AuthorName:    values.Get("authorName"),
		AuthorRole:    types.AuthorRole(strings.TrimSpace(values.Get("authorRole"))),
		ProgramID:     values.Get("programId"),
		BeneficiaryID: values.Get("beneficiaryId"),
		Language:      types.Language(strings.TrimSpace(values.Get("language"))),
		MediaTypes:    payload.FormValue(formValues(values, "mediaTypes")),
		Captions:      payload.FormValue(formValues(values, "captions")),
	}
	if req.Title, err = formLocalized(values, "title"); err != nil {
		return nil, err
	}
	if req.Body, err = formLocalized(values, "body"); err != nil {
		return nil, err
	}
	if v, err := formBool(values, "isFeatured"); err != nil {
		return nil, err
	} else if v != nil {
		req.IsFeatured = *v
	}
	if v, err := formBool(values, "isPublished"); err != nil {
		return nil, err
	} else if v != nil {
		req.IsPublished = *v
	}
	if req.PublishedDate, err = formDate(values, "publishedDate"); err != nil {
		return nil, err
	}
	if req.Metadata, err = formMetadata(values); err != nil {
		return nil, err
	}
	if req.Files, err = formFiles(form); err != nil {
		return nil, err
	}
	return req, nil
}

func parseUpdateRequest(r *http.Request) (*types.UpdateStoryRequest, error) {
	if !isMultipart(r) {
		var req types.UpdateStoryRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	form, err := parseMultipart(r)
	if err != nil {
		return nil, err
	}
	values := url.Values(form.Value)

	req := &types.UpdateStoryRequest{
		ProgramID:     formNullable(values, "programId"),
		BeneficiaryID: formNullable(values, "beneficiaryId"),
		MediaTypes:    payload.FormValue(formValues(values, "mediaTypes")),
		Captions:      payload.FormValue(formValues(values, "captions")),
		UpdateMedia:   payload.FormValue(formValues(values, "updateMedia")),
		RemoveMedia:   payload.FormValue(formValues(values, "removeMedia")),
	}
	if v, ok := formString(values, "authorName"); ok {
		req.AuthorName = &v
	}
	if v, ok := formString(values, "authorRole"); ok {
		role := types.AuthorRole(strings.TrimSpace(v))
		req.AuthorRole = &role
	}
	if v, ok := formString(values, "language"); ok {
		lang := types.Language(strings.TrimSpace(v))
		req.Language = &lang
	}
	if req.Title, err = formLocalized(values, "title"); err != nil {
		return nil, err
	}
	if req.Body, err = formLocalized(values, "body"); err != nil {
		return nil, err
	}
	if req.IsFeatured, err = formBool(values, "isFeatured"); err != nil {
		return nil, err
	}
	if req.IsPublished, err = formBool(values, "isPublished"); err != nil {
		return nil, err
	}
	if req.PublishedDate, err = formDate(values, "publishedDate"); err != nil {
		return nil, err
	}
	if req.Metadata, err = formMetadata(values); err != nil {
		return nil, err
	}
	if req.Files, err = formFiles(form); err != nil {
		return nil, err
	}
	return req, nil
}

// mediaUpload is the body of POST /stories/{id}/media
type mediaUpload struct {
	files    []media.File
	kinds    any
	captions any
}

func parseMediaUpload(r *http.Request) (*mediaUpload, error) {
	if !isMultipart(r) {
		return nil, apperr.Validation("media must be sent as multipart/form-data")
	}
	form, err := parseMultipart(r)
	if err != nil {
		return nil, err
	}
	values := url.Values(form.Value)

	files, err := formFiles(form)
	if err != nil {
		return nil, err
	}
	return &mediaUpload{
		files:    files,
		kinds:    payload.FormValue(formValues(values, "mediaTypes")),
		captions: payload.FormValue(formValues(values, "captions")),
	}, nil
}
