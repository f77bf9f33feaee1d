package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process document store used by tests and the dev server
// mode. Transactions take the store lock for their whole duration, which
// trivially satisfies the at-most-one-winner serialization contract.
type Memory struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) GetDocument(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(path)
}

func (m *Memory) get(path string) ([]byte, error) {
	data, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) SetDocument(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(path, data)
	return nil
}

func (m *Memory) set(path string, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.docs[path] = cp
}

func (m *Memory) ListDocuments(_ context.Context, prefix string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0)
	for p := range m.docs {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		cp := make([]byte, len(m.docs[p]))
		copy(cp, m.docs[p])
		out = append(out, cp)
	}
	return out, nil
}

func (m *Memory) UpdateDocument(_ context.Context, path string, partial map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := map[string]any{}
	if existing, ok := m.docs[path]; ok {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}
	}
	for k, v := range partial {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	m.docs[path] = data
	return nil
}

func (m *Memory) DeleteDocument(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
	return nil
}

// RunTransaction holds the store lock while fn runs; writes are buffered
// and applied only when fn returns nil.
func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m, writes: make(map[string][]byte)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for path, data := range tx.writes {
		m.set(path, data)
	}
	return nil
}

func (m *Memory) Close() {}

type memoryTx struct {
	store  *Memory
	writes map[string][]byte
}

func (t *memoryTx) Get(_ context.Context, path string) ([]byte, error) {
	if data, ok := t.writes[path]; ok {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	return t.store.get(path)
}

func (t *memoryTx) Set(_ context.Context, path string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	t.writes[path] = cp
	return nil
}
