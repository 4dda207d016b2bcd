package storage

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MemoryBackend keeps objects in process memory. Used by tests and by
// deployments that do not need persistence across restarts.
type MemoryBackend struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	counter int64
}

type memoryObject struct {
	data    []byte
	version string
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string]memoryObject)}
}

func (m *MemoryBackend) Load(_ context.Context, key string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{Key: key, Data: append([]byte(nil), obj.data...), Version: obj.version}, nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, data []byte, version string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.objects[key]
	if version != VersionAny {
		if version == VersionNone && exists {
			return "", ErrConflict
		}
		if version != VersionNone && (!exists || current.version != version) {
			return "", ErrConflict
		}
	}

	m.counter++
	next := strconv.FormatInt(m.counter, 10)
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), version: next}
	return next, nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryBackend) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0)
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Append(_ context.Context, key string, line []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj := m.objects[key]
	data := append(append([]byte(nil), obj.data...), line...)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		data = append(data, '\n')
	}
	m.counter++
	m.objects[key] = memoryObject{data: data, version: strconv.FormatInt(m.counter, 10)}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

func (m *MemoryBackend) Name() string { return "memory" }
