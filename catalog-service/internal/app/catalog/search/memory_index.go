package search

import (
	"context"
	"sync"

	"productcatalog/pkg/metrics"
)

const backendMemory = "memory"

// MemoryIndex - инвертированный индекс в памяти
type MemoryIndex struct {
	mu       sync.RWMutex
	postings map[string]map[int64]float64 // токен -> ID -> вес
	docs     map[int64][]string           // ID -> токены документа
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		postings: make(map[string]map[int64]float64),
		docs:     make(map[int64][]string),
	}
}

func (m *MemoryIndex) Index(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := weights(doc)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(doc.ID)
	tokens := make([]string, 0, len(w))
	for token, weight := range w {
		ids, ok := m.postings[token]
		if !ok {
			ids = make(map[int64]float64)
			m.postings[token] = ids
		}
		ids[doc.ID] = weight
		tokens = append(tokens, token)
	}
	m.docs[doc.ID] = tokens

	metrics.RecordIndexOperation(backendMemory, "index", nil)
	return nil
}

func (m *MemoryIndex) Remove(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(id)
	metrics.RecordIndexOperation(backendMemory, "remove", nil)
	return nil
}

func (m *MemoryIndex) Match(ctx context.Context, keyword string) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make(map[int64]float64)
	for _, token := range queryTokens(keyword) {
		for id, weight := range m.postings[token] {
			scores[id] += weight
		}
	}

	metrics.RecordIndexOperation(backendMemory, "match", nil)
	return rank(scores), nil
}

func (m *MemoryIndex) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.postings = make(map[string]map[int64]float64)
	m.docs = make(map[int64][]string)
	metrics.RecordIndexOperation(backendMemory, "clear", nil)
	return nil
}

// Size возвращает число проиндексированных документов
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) removeLocked(id int64) {
	for _, token := range m.docs[id] {
		ids := m.postings[token]
		delete(ids, id)
		if len(ids) == 0 {
			delete(m.postings, token)
		}
	}
	delete(m.docs, id)
}
