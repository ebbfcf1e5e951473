package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store. It backs tests across the core packages
// and offline runs of the CLI. Writes are safe for concurrent use.
type MemStore struct {
	mu      sync.Mutex
	records map[string]Record

	// FailNext makes the next n operations return an error, simulating a
	// remote outage. Tests only.
	FailNext int
}

// NewMemStore creates an empty in-memory record store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]Record)}
}

func (m *MemStore) fail() error {
	if m.FailNext > 0 {
		m.FailNext--
		return fmt.Errorf("remote store unavailable")
	}
	return nil
}

// Create implements Store.Create.
func (m *MemStore) Create(ctx context.Context, recordType string, fields Fields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return "", err
	}
	now := time.Now()
	rec := Record{
		ID:         uuid.New().String(),
		Type:       recordType,
		Fields:     cloneFields(fields),
		CreatedAt:  now,
		ModifiedAt: now,
	}
	m.records[rec.ID] = rec
	return rec.ID, nil
}

// Get implements Store.Get.
func (m *MemStore) Get(ctx context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return Record{}, err
	}
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Fields = cloneFields(rec.Fields)
	return rec, nil
}

// Update implements Store.Update.
func (m *MemStore) Update(ctx context.Context, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	rec.ModifiedAt = time.Now()
	m.records[id] = rec
	return nil
}

// Delete implements Store.Delete.
func (m *MemStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.records, id)
	return nil
}

// Query implements Store.Query.
func (m *MemStore) Query(ctx context.Context, recordType, field string, value any) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range m.records {
		if rec.Type != recordType {
			continue
		}
		if rec.Fields[field] != value {
			continue
		}
		rec.Fields = cloneFields(rec.Fields)
		out = append(out, rec)
	}
	return out, nil
}

// Len returns the number of stored records. Tests only.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func cloneFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
