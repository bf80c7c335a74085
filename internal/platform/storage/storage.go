// Package storage holds user-uploaded files (avatars) behind a bucket/path
// API. Backends: in-memory for development and tests, S3 for deployments.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid object path")
)

// Object describes a stored file.
type Object struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the contract shared by all backends.
type Store interface {
	Upload(ctx context.Context, bucket, objectPath, contentType string, r io.Reader) (Object, error)
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	Remove(ctx context.Context, bucket string, paths ...string) error
	PublicURL(bucket, objectPath string) string
}

// Reader is implemented by backends that can stream objects back through
// this service. S3 objects are served by S3 itself.
type Reader interface {
	Get(ctx context.Context, bucket, objectPath string) (io.ReadCloser, Object, error)
}

// CleanPath normalizes an object path and rejects traversal.
func CleanPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" || strings.Contains(p, "..") || strings.Contains(p, `\`) {
		return "", ErrInvalidPath
	}
	return path.Clean(p), nil
}

func publicURL(base, bucket, objectPath string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), bucket, objectPath)
}

type memObject struct {
	meta Object
	data []byte
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]map[string]*memObject // bucket -> path -> object
	baseURL string
}

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]map[string]*memObject),
		baseURL: publicBaseURL,
	}
}

// Upload stores the object, replacing any previous content at the same path.
func (s *MemoryStore) Upload(_ context.Context, bucket, objectPath, contentType string, r io.Reader) (Object, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return Object{}, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return Object{}, fmt.Errorf("reading content: %w", err)
	}

	obj := &memObject{
		meta: Object{
			Name:        p,
			Size:        int64(buf.Len()),
			ContentType: contentType,
			UpdatedAt:   time.Now().UTC(),
		},
		data: buf.Bytes(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects[bucket] == nil {
		s.objects[bucket] = make(map[string]*memObject)
	}
	s.objects[bucket][p] = obj
	return obj.meta, nil
}

// List returns objects under prefix, newest first.
func (s *MemoryStore) List(_ context.Context, bucket, prefix string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Object
	for p, obj := range s.objects[bucket] {
		if strings.HasPrefix(p, prefix) {
			out = append(out, obj.meta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Name > out[j].Name
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Remove deletes the given paths. Missing paths are ignored.
func (s *MemoryStore) Remove(_ context.Context, bucket string, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		delete(s.objects[bucket], strings.TrimPrefix(p, "/"))
	}
	return nil
}

func (s *MemoryStore) PublicURL(bucket, objectPath string) string {
	return publicURL(s.baseURL, bucket, objectPath)
}

func (s *MemoryStore) Get(_ context.Context, bucket, objectPath string) (io.ReadCloser, Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[bucket][strings.TrimPrefix(objectPath, "/")]
	if !ok {
		return nil, Object{}, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.meta, nil
}
