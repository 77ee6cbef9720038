package media

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	mediatypes "github.com/princekumarofficial/impact-stories/internal/types/media"
)

// MemoryStore keeps objects in process memory. It backs the development
// profile and the test suites.
type MemoryStore struct {
	mu             sync.Mutex
	baseURL        string
	previewBaseURL string
	objects        map[string]memoryObject
	now            func() time.Time
}

type memoryObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://media"
	}
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

// WithPreviewBaseURL sets the image proxy used for derived previews
func (m *MemoryStore) WithPreviewBaseURL(u string) *MemoryStore {
	m.previewBaseURL = strings.TrimRight(u, "/")
	return m
}

func (m *MemoryStore) Upload(ctx context.Context, folder string, file mediatypes.File, kind mediatypes.Kind) (mediatypes.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return mediatypes.UploadResult{}, err
	}
	reader, err := file.Open()
	if err != nil {
		return mediatypes.UploadResult{}, fmt.Errorf("failed to open %q: %w", file.Name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return mediatypes.UploadResult{}, fmt.Errorf("failed to read %q: %w", file.Name, err)
	}

	key := GenerateObjectKey(folder, file.Name, file.ContentType)

	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, contentType: file.ContentType, lastModified: m.now()}
	m.mu.Unlock()

	return mediatypes.UploadResult{URL: m.url(key), PublicID: key}, nil
}

func (m *MemoryStore) url(key string) string {
	return m.baseURL + "/" + key
}

func (m *MemoryStore) DerivePreviewURL(publicID string, opts PreviewOptions) (string, error) {
	return derivePreviewURL(m.previewBaseURL, m.url(publicID), publicID, opts), nil
}

func (m *MemoryStore) Delete(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.objects, publicID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteFolder(ctx context.Context, folder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := strings.TrimRight(folder, "/") + "/"

	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
		}
	}
	return nil
}

func (m *MemoryStore) ListFolder(ctx context.Context, folder string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(folder, "/") + "/"

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.lastModified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Has reports whether an object is stored under key
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Put stores raw bytes under an explicit key, e.g. to simulate a straggler upload
func (m *MemoryStore) Put(key, contentType string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType, lastModified: modified}
}

// Len returns the number of stored objects
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
