package media

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/princekumarofficial/impact-stories/internal/config"
	mediatypes "github.com/princekumarofficial/impact-stories/internal/types/media"
)

// ObjectInfo describes one stored object as seen by a folder listing
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// PreviewOptions controls the derived single-frame preview of a video object
type PreviewOptions struct {
	AtSeconds float64
	Width     int
}

// StoryFolder is the storage prefix holding every object of a story
func StoryFolder(storyID string) string {
	return "stories/" + storyID
}

// ThumbnailFolder holds thumbnails extracted for a story's videos
func ThumbnailFolder(storyID string) string {
	return StoryFolder(storyID) + "/thumbnails"
}

// Service is the MinIO-backed object storage gateway
type Service struct {
	client         *minio.Client
	bucketName     string
	useSSL         bool
	publicBaseURL  string
	previewBaseURL string
}

// NewService creates a new media service instance
func NewService(cfg *config.Config) (*Service, error) {
	// Initialize MinIO client
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	service := &Service{
		client:         client,
		bucketName:     cfg.MinIO.BucketName,
		useSSL:         cfg.MinIO.UseSSL,
		publicBaseURL:  strings.TrimRight(cfg.MinIO.PublicBaseURL, "/"),
		previewBaseURL: strings.TrimRight(cfg.MinIO.PreviewBaseURL, "/"),
	}

	// Ensure bucket exists
	if err := service.ensureBucket(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return service, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (s *Service) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// GenerateObjectKey creates a unique object key for the file inside folder
func GenerateObjectKey(folder, fileName, contentType string) string {
	return fmt.Sprintf("%s/%s%s", strings.TrimRight(folder, "/"), uuid.New().String(), extensionFor(fileName, contentType))
}

func extensionFor(fileName, contentType string) string {
	switch normalizeMime(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	}

	if ext := strings.ToLower(path.Ext(fileName)); ext != "" {
		return ext
	}

	if extensions, err := mime.ExtensionsByType(contentType); err == nil && len(extensions) > 0 {
		return extensions[0]
	}
	return ""
}

// Upload stores file under folder and returns its URL and public id
func (s *Service) Upload(ctx context.Context, folder string, file mediatypes.File, kind mediatypes.Kind) (mediatypes.UploadResult, error) {
	objectKey := GenerateObjectKey(folder, file.Name, file.ContentType)

	reader, err := file.Open()
	if err != nil {
		return mediatypes.UploadResult{}, fmt.Errorf("failed to open %q: %w", file.Name, err)
	}
	defer reader.Close()

	_, err = s.client.PutObject(ctx, s.bucketName, objectKey, reader, file.Size, minio.PutObjectOptions{
		ContentType:  file.ContentType,
		UserMetadata: map[string]string{"kind": string(kind), "filename": file.Name},
	})
	if err != nil {
		return mediatypes.UploadResult{}, fmt.Errorf("failed to put object %s: %w", objectKey, err)
	}

	return mediatypes.UploadResult{URL: s.GetMediaURL(objectKey), PublicID: objectKey}, nil
}

// GetMediaURL returns the public URL for accessing media (if bucket is public)
func (s *Service) GetMediaURL(objectKey string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + objectKey
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}

	endpoint := strings.TrimPrefix(s.client.EndpointURL().String(), scheme+"://")
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, s.bucketName, objectKey)
}

// DerivePreviewURL returns a URL rendering a single frame of the video object.
// With an image proxy configured the proxy renders the frame; otherwise the
// media-fragment form makes players show the frame at the requested offset.
func (s *Service) DerivePreviewURL(publicID string, opts PreviewOptions) (string, error) {
	return derivePreviewURL(s.previewBaseURL, s.GetMediaURL(publicID), publicID, opts), nil
}

func derivePreviewURL(previewBaseURL, mediaURL, publicID string, opts PreviewOptions) string {
	at := opts.AtSeconds
	if at <= 0 {
		at = 1
	}
	if previewBaseURL != "" {
		u := fmt.Sprintf("%s/%s?frame=%g&format=jpg", previewBaseURL, publicID, at)
		if opts.Width > 0 {
			u += fmt.Sprintf("&width=%d", opts.Width)
		}
		return u
	}
	return fmt.Sprintf("%s#t=%g", mediaURL, at)
}

// Delete removes an object from storage
func (s *Service) Delete(ctx context.Context, publicID string) error {
	return s.client.RemoveObject(ctx, s.bucketName, publicID, minio.RemoveObjectOptions{})
}

// ListFolder lists every object stored under folder
func (s *Service) ListFolder(ctx context.Context, folder string) ([]ObjectInfo, error) {
	prefix := strings.TrimRight(folder, "/") + "/"

	var objects []ObjectInfo
	objectsCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectsCh {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, ObjectInfo{Key: object.Key, Size: object.Size, LastModified: object.LastModified})
	}

	return objects, nil
}

// DeleteFolder removes every object under folder
func (s *Service) DeleteFolder(ctx context.Context, folder string) error {
	prefix := strings.TrimRight(folder, "/") + "/"

	objectsCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var failed []string
	for rErr := range s.client.RemoveObjects(ctx, s.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		failed = append(failed, fmt.Sprintf("%s: %v", rErr.ObjectName, rErr.Err))
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d objects under %s: %s", len(failed), prefix, strings.Join(failed, "; "))
	}
	return nil
}
