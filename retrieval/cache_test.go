package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheFingerprintIgnoresCaseWhitespaceAndPunctuation(t *testing.T) {
	a := Fingerprint("  What is Go's Context package?  ", LaneWeb, 10)
	b := Fingerprint("what is go's context package", LaneWeb, 10)
	assert.Equal(t, a, b)
}

func TestCacheFingerprintDistinguishesLaneAndTopK(t *testing.T) {
	base := Fingerprint("context package", LaneWeb, 10)
	differentLane := Fingerprint("context package", LaneNews, 10)
	differentTopK := Fingerprint("context package", LaneWeb, 5)

	assert.NotEqual(t, base, differentLane)
	assert.NotEqual(t, base, differentTopK)
}

func TestCacheMissThenHit(t *testing.T) {
	c := NewCache(10)

	_, found := c.Get("k1")
	assert.False(t, found)

	result := LaneResult{Lane: LaneWeb, Status: StatusSuccess, Items: []Evidence{{SourceID: "a"}}}
	c.Put("k1", result, time.Minute)

	got, found := c.Get("k1")
	require.True(t, found)
	assert.Equal(t, result.Items, got.Items)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCacheExpiresEntriesLazily(t *testing.T) {
	c := NewCache(10)
	c.Put("k1", LaneResult{Status: StatusSuccess}, -time.Second) // already expired

	_, found := c.Get("k1")
	assert.False(t, found)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCacheEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := NewCache(2)
	c.Put("a", LaneResult{Status: StatusSuccess}, time.Minute)
	c.Put("b", LaneResult{Status: StatusSuccess}, time.Minute)

	// touch "a" so "b" becomes the least recently used entry
	_, _ = c.Get("a")

	c.Put("c", LaneResult{Status: StatusSuccess}, time.Minute)

	_, foundA := c.Get("a")
	_, foundB := c.Get("b")
	_, foundC := c.Get("c")

	assert.True(t, foundA)
	assert.False(t, foundB, "least recently used entry should have been evicted")
	assert.True(t, foundC)
}

func TestCachePutOverwritesExistingEntryAndRefreshesTTL(t *testing.T) {
	c := NewCache(10)
	c.Put("k1", LaneResult{Status: StatusSuccess, ElapsedMS: 10}, time.Minute)
	c.Put("k1", LaneResult{Status: StatusSuccess, ElapsedMS: 20}, time.Minute)

	got, found := c.Get("k1")
	require.True(t, found)
	assert.Equal(t, int64(20), got.ElapsedMS)
	assert.Equal(t, 1, c.Stats().Size)
}
