package utils

import (
	"context"
	"sync"
	"time"
)

// MemoryVisitBuffer is an in-process VisitBuffer used by tests and by
// deployments that run without Redis.
type MemoryVisitBuffer struct {
	mu      sync.Mutex
	uniques map[string]memoryEntry
	hits    map[string]memoryCounter
	now     func() time.Time
}

type memoryEntry struct {
	event     VisitEvent
	expiresAt time.Time
}

type memoryCounter struct {
	ref       TargetRef
	count     int64
	expiresAt time.Time
}

// NewMemoryVisitBuffer builds an empty in-memory buffer.
func NewMemoryVisitBuffer() *MemoryVisitBuffer {
	return &MemoryVisitBuffer{
		uniques: make(map[string]memoryEntry),
		hits:    make(map[string]memoryCounter),
		now:     time.Now,
	}
}

func (b *MemoryVisitBuffer) RecordUnique(_ context.Context, ev VisitEvent, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := uniqueVisitKey(ev)
	if entry, ok := b.uniques[key]; ok && entry.expiresAt.After(b.now()) {
		return nil
	}
	b.uniques[key] = memoryEntry{event: ev, expiresAt: b.now().Add(ttl)}
	return nil
}

func (b *MemoryVisitBuffer) RecordHit(_ context.Context, ref TargetRef, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := rawVisitKey(ref)
	counter, ok := b.hits[key]
	if !ok || !counter.expiresAt.After(b.now()) {
		counter = memoryCounter{ref: ref, expiresAt: b.now().Add(ttl)}
	}
	counter.count++
	b.hits[key] = counter
	return nil
}

func (b *MemoryVisitBuffer) DrainUniques(_ context.Context) ([]VisitEvent, []string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := make([]VisitEvent, 0, len(b.uniques))
	keys := make([]string, 0, len(b.uniques))
	for key, entry := range b.uniques {
		if !entry.expiresAt.After(b.now()) {
			delete(b.uniques, key)
			continue
		}
		events = append(events, entry.event)
		keys = append(keys, key)
	}
	return events, keys, nil
}

func (b *MemoryVisitBuffer) DrainHits(_ context.Context) (map[TargetRef]int64, []string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hits := make(map[TargetRef]int64, len(b.hits))
	keys := make([]string, 0, len(b.hits))
	for key, counter := range b.hits {
		if !counter.expiresAt.After(b.now()) {
			delete(b.hits, key)
			continue
		}
		hits[counter.ref] += counter.count
		keys = append(keys, key)
	}
	return hits, keys, nil
}

func (b *MemoryVisitBuffer) Clear(_ context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		delete(b.uniques, key)
		delete(b.hits, key)
	}
	return nil
}
