// Package memory is an in-memory object store. Besides the store operations
// it serves its objects over HTTP with range support, so pre-signed URLs
// can be followed in tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdok/atom-generator/pkg/atomfeed"
)

type object struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// Store is an in-memory implementation of the atomfeed.ObjectStore interface
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*object
	baseURL string
	now     func() time.Time
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		buckets: make(map[string]map[string]*object),
		now:     time.Now,
	}
}

// SetBaseURL sets the URL the store is served at, typically an
// httptest.Server running the store as its handler.
func (s *Store) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = strings.TrimRight(baseURL, "/")
}

// Put stores data directly, bypassing the reader based PutObject
func (s *Store) Put(bucket, key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(bucket)[key] = &object{data: data, contentType: contentType, lastModified: s.now().UTC()}
}

// Get returns the content of an object
func (s *Store) Get(bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return obj.data, true
}

// bucket returns the objects of a bucket, creating it. Callers hold the write lock.
func (s *Store) bucket(name string) map[string]*object {
	b, ok := s.buckets[name]
	if !ok {
		b = make(map[string]*object)
		s.buckets[name] = b
	}
	return b
}

func (s *Store) meta(key string, obj *object) atomfeed.ObjectMeta {
	return atomfeed.ObjectMeta{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.lastModified,
		IsDir:        strings.HasSuffix(key, "/"),
	}
}

// StatObject retrieves metadata for an object in memory
func (s *Store) StatObject(ctx context.Context, bucket, key string) (*atomfeed.ObjectMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, atomfeed.ErrObjectNotFound
	}
	meta := s.meta(key, obj)
	return &meta, nil
}

// PresignGetObject returns a URL below the base URL. Expiry is recorded in
// the query but not enforced.
func (s *Store) PresignGetObject(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.baseURL == "" {
		return "", fmt.Errorf("memory store has no base URL to presign %s/%s", bucket, key)
	}
	if _, ok := s.buckets[bucket][key]; !ok {
		return "", atomfeed.ErrObjectNotFound
	}
	q := url.Values{"X-Amz-Expires": {fmt.Sprint(int(expires.Seconds()))}}
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + key + "?" + q.Encode(), nil
}

// ListObjects lists the objects below prefix sorted by key
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]atomfeed.ObjectMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var objects []atomfeed.ObjectMeta
	for key, obj := range s.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, s.meta(key, obj))
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// PutObject stores the content of reader
func (s *Store) PutObject(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	s.Put(bucket, key, data, contentType)
	return nil
}

// CopyObject copies an object, keeping its content type
func (s *Store) CopyObject(ctx context.Context, dst, src atomfeed.ObjectRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.buckets[src.Bucket][src.Key]
	if !ok {
		return atomfeed.ErrObjectNotFound
	}
	s.bucket(dst.Bucket)[dst.Key] = &object{
		data:         bytes.Clone(obj.data),
		contentType:  obj.contentType,
		lastModified: s.now().UTC(),
	}
	return nil
}

// RemoveObject deletes an object
func (s *Store) RemoveObject(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[bucket][key]; !ok {
		return atomfeed.ErrObjectNotFound
	}
	delete(s.buckets[bucket], key)
	return nil
}

// ServeHTTP serves GET /{bucket}/{key} with range support.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	obj, found := s.buckets[bucket][key]
	s.mu.RUnlock()
	if !found || strings.HasSuffix(key, "/") {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", obj.contentType)
	http.ServeContent(w, r, key, obj.lastModified, bytes.NewReader(obj.data))
}
