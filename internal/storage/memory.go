package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/yoockh/recruitlink/internal/utils"
)

// MemoryStore keeps objects in memory. Used for local runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]memoryObject
	// FailUpload, when set, is returned by Upload for matching object names.
	FailUpload func(objectName string) error
	uploads    int
}

type memoryObject struct {
	contentType string
	data        []byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: strings.TrimRight(baseURL, "/"), objects: map[string]memoryObject{}}
}

func (m *MemoryStore) Upload(_ context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	if m.FailUpload != nil {
		if err := m.FailUpload(objectName); err != nil {
			return "", err
		}
	}
	m.objects[objectName] = memoryObject{contentType: contentType, data: b}
	return m.baseURL + "/" + objectName, nil
}

func (m *MemoryStore) Download(_ context.Context, objectName string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[objectName]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(o.data)), nil
}

// Object returns the stored bytes and content type of objectName.
func (m *MemoryStore) Object(objectName string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[objectName]
	return o.data, o.contentType, ok
}

// Uploads counts Upload calls, failed ones included.
func (m *MemoryStore) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}
