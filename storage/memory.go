package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

type memoryObject struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps objects in process memory; used by --memory mode and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	objects       map[string]memoryObject
	publicBaseURL string
}

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject), publicBaseURL: publicBaseURL}
}

func (s *MemoryStore) Upload(_ context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body (key: %s): %w", key, err)
	}
	sum := md5.Sum(data)

	s.mu.Lock()
	s.objects[key] = memoryObject{ContentType: contentType, Data: data}
	s.mu.Unlock()

	return &UploadResult{Key: key, Location: s.GetPublicURL(key), ETag: hex.EncodeToString(sum[:])}, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) GetPublicURL(key string) string {
	return publicURL(s.publicBaseURL, key)
}

// Get returns a copy of the stored object body.
func (s *MemoryStore) Get(key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return bytes.Clone(obj.Data), obj.ContentType, nil
}
