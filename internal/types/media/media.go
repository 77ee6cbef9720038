package media

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"
)

// Kind is the declared kind of a media attachment
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// KindFromMimeType infers the kind from a declared mime type: video/* is a video, anything else an image
func KindFromMimeType(contentType string) Kind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "video/") {
		return KindVideo
	}
	return KindImage
}

// Item is one attachment embedded in a story's ordered media list
type Item struct {
	URL               string `json:"url"`
	PublicID          string `json:"public_id"`
	Kind              Kind   `json:"kind"`
	Caption           string `json:"caption"`
	ThumbnailURL      string `json:"thumbnail_url"`
	ThumbnailPublicID string `json:"thumbnail_public_id,omitempty"`
}

// File describes one uploaded file as delivered by the transport layer
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromBytes wraps an in-memory payload as a File
func FromBytes(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromFileHeader wraps a multipart file part as a File
func FromFileHeader(fh *multipart.FileHeader) File {
	return File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// CaptionUpdate is one entry of an updateMedia list
type CaptionUpdate struct {
	PublicID string `json:"publicId"`
	Caption  string `json:"caption"`
}

// UploadResult is what the object store hands back for a stored object
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}
