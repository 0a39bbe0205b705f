package blobstore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/dmitrijs2005/filevault/internal/common"
)

type memoryObject struct {
	data        []byte
	contentType string
	tags        map[string]string
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string, tags map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		tags:        maps.Clone(tags),
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", common.ErrNotFound, key)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) EnsureBucket(context.Context) error { return nil }

// Tags returns the metadata stored with key, or nil.
func (m *MemoryStore) Tags(key string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.objects[key].tags)
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}
