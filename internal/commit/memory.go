package commit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/csvimport/internal/core"
)

// MemoryCommitter keeps committed rows in process. It applies the same
// unique-key rule as the Postgres backend, so it is a faithful stand-in for
// tests and for dry runs from the CLI.
type MemoryCommitter struct {
	keyFields KeyFieldsFunc

	mu      sync.Mutex
	keys    map[string]map[string]string // entity -> row key -> batch ID
	records map[string][]memoryRecord    // batch ID -> rows
	batches map[string]*core.BatchSummary
	calls   int
}

type memoryRecord struct {
	entity string
	key    *string
	data   map[string]string
}

// NewMemoryCommitter creates an empty store. A nil keyFields uses
// RegistryKeyFields.
func NewMemoryCommitter(keyFields KeyFieldsFunc) *MemoryCommitter {
	if keyFields == nil {
		keyFields = RegistryKeyFields
	}
	return &MemoryCommitter{
		keyFields: keyFields,
		keys:      make(map[string]map[string]string),
		records:   make(map[string][]memoryRecord),
		batches:   make(map[string]*core.BatchSummary),
	}
}

// CommitBatch implements core.Committer.
func (m *MemoryCommitter) CommitBatch(ctx context.Context, req core.CommitRequest) (core.CommitResponse, error) {
	if err := ctx.Err(); err != nil {
		return core.CommitResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	fields := m.keyFields(req.Entity)
	if m.keys[req.Entity] == nil {
		m.keys[req.Entity] = make(map[string]string)
	}

	resp := core.CommitResponse{Errors: []core.CommitRowError{}}
	for i, row := range req.Rows {
		key := rowKey(row, fields)
		if key != nil {
			if _, taken := m.keys[req.Entity][*key]; taken {
				resp.Errors = append(resp.Errors, core.CommitRowError{Row: i + 1, Error: "duplicate"})
				resp.Failed++
				continue
			}
			m.keys[req.Entity][*key] = req.BatchID
		}
		m.records[req.BatchID] = append(m.records[req.BatchID], memoryRecord{
			entity: req.Entity,
			key:    key,
			data:   row,
		})
		resp.Success++
	}

	meta := core.RequestMetaFromContext(ctx)
	m.batches[req.BatchID] = &core.BatchSummary{
		ID:           req.BatchID,
		Entity:       req.Entity,
		FileName:     req.FileName,
		Actor:        meta.Actor,
		RowsInserted: resp.Success,
		RowsRejected: resp.Failed,
		Status:       "active",
		CreatedAt:    time.Now(),
	}

	return resp, nil
}

// RollbackBatch implements core.BatchRollbacker.
func (m *MemoryCommitter) RollbackBatch(ctx context.Context, batchID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[batchID]
	if !ok || b.Status != "active" {
		return 0, core.ErrBatchNotFound
	}

	recs := m.records[batchID]
	for _, r := range recs {
		if r.key != nil {
			delete(m.keys[r.entity], *r.key)
		}
	}
	delete(m.records, batchID)

	now := time.Now()
	b.Status = "rolled_back"
	b.RolledBackAt = &now
	return int64(len(recs)), nil
}

// ListBatches implements core.BatchLister.
func (m *MemoryCommitter) ListBatches(ctx context.Context, entity string, limit int) ([]core.BatchSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []core.BatchSummary{}
	for _, b := range m.batches {
		if entity == "" || b.Entity == entity {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Rows returns the stored rows for an entity across all batches.
func (m *MemoryCommitter) Rows(entity string) []map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []map[string]string
	for _, recs := range m.records {
		for _, r := range recs {
			if r.entity == entity {
				out = append(out, r.data)
			}
		}
	}
	return out
}

// Calls returns how many batches were submitted.
func (m *MemoryCommitter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
