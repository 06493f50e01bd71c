package history

import (
	"context"
	"sync"
	"time"
)

// Record is one evaluated input. Negatives is set when the input was rejected.
type Record struct {
	Input     string    `bson:"input" json:"input"`
	Sum       int       `bson:"sum" json:"sum"`
	Negatives []int     `bson:"negatives,omitempty" json:"negatives,omitempty"`
	Source    string    `bson:"source" json:"source"`
	Client    string    `bson:"client" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Recorder stores calculation history per client.
type Recorder interface {
	Append(ctx context.Context, rec Record) error
	Recent(ctx context.Context, client string, limit int) ([]Record, error)
}

// MemoryRecorder keeps the last N records in process.
type MemoryRecorder struct {
	mu   sync.Mutex
	buf  []Record
	next int
	full bool
}

func NewMemoryRecorder(size int) *MemoryRecorder {
	if size <= 0 {
		size = 1
	}
	return &MemoryRecorder{buf: make([]Record, size)}
}

func (m *MemoryRecorder) Append(_ context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.buf[m.next] = rec
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	m.mu.Unlock()
	return nil
}

// Recent returns the newest records for client first.
func (m *MemoryRecorder) Recent(_ context.Context, client string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.next
	if m.full {
		n = len(m.buf)
	}
	out := make([]Record, 0, min(limit, n))
	for i := 0; i < n && len(out) < limit; i++ {
		idx := (m.next - 1 - i + len(m.buf)) % len(m.buf)
		if m.buf[idx].Client == client {
			out = append(out, m.buf[idx])
		}
	}
	return out, nil
}
