package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVisitBufferUniqueMarkerSetOnce(t *testing.T) {
	buf := NewMemoryVisitBuffer()
	ctx := context.Background()
	ev := VisitEvent{TargetType: "course", TargetSlug: "go-basics", SessionKey: "s1"}

	require.NoError(t, buf.RecordUnique(ctx, ev, time.Hour))
	require.NoError(t, buf.RecordUnique(ctx, ev, time.Hour))

	events, keys, err := buf.DrainUniques(ctx)
	require.NoError(t, err)
	assert.Equal(t, []VisitEvent{ev}, events)
	assert.Len(t, keys, 1)
}

func TestMemoryVisitBufferHitsAccumulate(t *testing.T) {
	buf := NewMemoryVisitBuffer()
	ctx := context.Background()
	ref := TargetRef{TargetType: "course", TargetSlug: "go-basics"}

	for i := 0; i < 3; i++ {
		require.NoError(t, buf.RecordHit(ctx, ref, time.Hour))
	}

	hits, keys, err := buf.DrainHits(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, hits[ref])
	assert.Len(t, keys, 1)
}

func TestMemoryVisitBufferDrainDoesNotDelete(t *testing.T) {
	buf := NewMemoryVisitBuffer()
	ctx := context.Background()
	ev := VisitEvent{TargetType: "course", TargetSlug: "go-basics", SessionKey: "s1"}
	require.NoError(t, buf.RecordUnique(ctx, ev, time.Hour))

	_, _, err := buf.DrainUniques(ctx)
	require.NoError(t, err)

	events, _, err := buf.DrainUniques(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1, "draining reads without deleting")
}

func TestMemoryVisitBufferClear(t *testing.T) {
	buf := NewMemoryVisitBuffer()
	ctx := context.Background()
	ev := VisitEvent{TargetType: "course", TargetSlug: "go-basics", SessionKey: "s1"}
	ref := TargetRef{TargetType: "course", TargetSlug: "go-basics"}
	require.NoError(t, buf.RecordUnique(ctx, ev, time.Hour))
	require.NoError(t, buf.RecordHit(ctx, ref, time.Hour))

	_, uniqueKeys, err := buf.DrainUniques(ctx)
	require.NoError(t, err)
	_, hitKeys, err := buf.DrainHits(ctx)
	require.NoError(t, err)

	require.NoError(t, buf.Clear(ctx, append(uniqueKeys, hitKeys...)))

	events, _, err := buf.DrainUniques(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
	hits, _, err := buf.DrainHits(ctx)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryVisitBufferExpiry(t *testing.T) {
	buf := NewMemoryVisitBuffer()
	now := time.Now()
	buf.now = func() time.Time { return now }
	ctx := context.Background()
	ev := VisitEvent{TargetType: "course", TargetSlug: "go-basics", SessionKey: "s1"}
	require.NoError(t, buf.RecordUnique(ctx, ev, time.Minute))

	now = now.Add(2 * time.Minute)
	events, _, err := buf.DrainUniques(ctx)
	require.NoError(t, err)
	assert.Empty(t, events, "expired markers vanish like redis keys")
}
