package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// StubStorage keeps objects in memory. It backs development setups without
// an object store and the service tests.
type StubStorage struct {
	// BaseURL prefixes download links
	BaseURL string

	mu      sync.RWMutex
	objects map[string]StubObject
}

// StubObject is a stored upload
type StubObject struct {
	Data        []byte
	ContentType string
}

// NewStubStorage creates an empty store
func NewStubStorage() *StubStorage {
	return &StubStorage{
		BaseURL: "http://localhost:8080/files",
		objects: make(map[string]StubObject),
	}
}

// Put stores a copy of body
func (s *StubStorage) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if key == "" {
		return errEmptyKey
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	s.mu.Lock()
	s.objects[key] = StubObject{Data: buf.Bytes(), ContentType: contentType}
	s.mu.Unlock()
	return nil
}

// DownloadURL returns BaseURL/key, valid for an hour
func (s *StubStorage) DownloadURL(_ context.Context, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	u, err := url.JoinPath(s.BaseURL, key)
	if err != nil {
		return "", time.Time{}, err
	}
	return u, time.Now().Add(time.Hour), nil
}

// Delete removes key
func (s *StubStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errEmptyKey
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Object returns a stored upload
func (s *StubStorage) Object(key string) (StubObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}
