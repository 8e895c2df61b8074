// Package store keeps a bounded, time-ordered window of normalized events in
// memory and serves filtered queries over it.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Options configures a Memory store. Zero values disable the limit.
type Options struct {
	Retention time.Duration
	MaxEvents int
	Clock     clockwork.Clock
	Metrics   *observability.Metrics
}

// Memory is an in-memory event window ordered by timestamp. Events older
// than the retention window and, past MaxEvents, the oldest events are
// evicted on every load. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	events []domain.Event
	ids    map[string]struct{}

	retention time.Duration
	maxEvents int
	clock     clockwork.Clock
	metrics   *observability.Metrics
}

// NewMemory creates an empty store.
func NewMemory(opts Options) *Memory {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Memory{
		ids:       make(map[string]struct{}),
		retention: opts.Retention,
		maxEvents: opts.MaxEvents,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
	}
}

// LoadBatch adds events, skipping IDs already present, then applies the
// retention and capacity limits.
func (m *Memory) LoadBatch(_ context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, e := range events {
		if _, dup := m.ids[e.ID]; dup {
			continue
		}
		m.ids[e.ID] = struct{}{}
		m.insert(e)
		added++
	}
	evicted := m.evict()

	if m.metrics != nil {
		m.metrics.EventsStored.Add(float64(added))
		m.metrics.EventsEvicted.Add(float64(evicted))
		m.metrics.StoreSize.Set(float64(len(m.events)))
	}
	return nil
}

// insert keeps m.events sorted by timestamp; equal timestamps keep arrival order.
func (m *Memory) insert(e domain.Event) {
	n := len(m.events)
	if n == 0 || !e.Timestamp.Before(m.events[n-1].Timestamp) {
		m.events = append(m.events, e)
		return
	}
	i := sort.Search(n, func(i int) bool { return m.events[i].Timestamp.After(e.Timestamp) })
	m.events = append(m.events, domain.Event{})
	copy(m.events[i+1:], m.events[i:])
	m.events[i] = e
}

func (m *Memory) evict() int {
	drop := 0
	if m.retention > 0 {
		cutoff := m.clock.Now().Add(-m.retention)
		drop = sort.Search(len(m.events), func(i int) bool { return !m.events[i].Timestamp.Before(cutoff) })
	}
	if m.maxEvents > 0 && len(m.events)-drop > m.maxEvents {
		drop = len(m.events) - m.maxEvents
	}
	if drop == 0 {
		return 0
	}
	for _, e := range m.events[:drop] {
		delete(m.ids, e.ID)
	}
	m.events = append([]domain.Event(nil), m.events[drop:]...)
	return drop
}

// Query returns copies of the events matching f in timestamp order.
func (m *Memory) Query(ctx context.Context, f domain.Filter) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if !f.From.IsZero() {
		start = sort.Search(len(m.events), func(i int) bool { return !m.events[i].Timestamp.Before(f.From) })
	}

	out := make([]domain.Event, 0)
	for _, e := range m.events[start:] {
		if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
			break
		}
		if f.Match(e) {
			out = append(out, e)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// Len returns the number of events held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
