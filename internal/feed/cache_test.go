package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dealdrop/backend/internal/models"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache(time.Minute)
	page := Page{Deals: []models.Deal{{Title: "a"}}, HasMore: true}

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set(c.Generation(), "k", page)
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, page, got)
}

func TestCacheExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set(c.Generation(), "k", Page{HasMore: true})
	now = now.Add(61 * time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheInvalidateDropsStaleWrites(t *testing.T) {
	c := NewCache(time.Minute)
	gen := c.Generation()

	c.Set(gen, "a", Page{})
	c.Invalidate()
	assert.Equal(t, 0, c.Len())

	// A load that started before the invalidation must not repopulate.
	c.Set(gen, "b", Page{})
	_, ok := c.Get("b")
	assert.False(t, ok)

	c.Set(c.Generation(), "b", Page{})
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache(0)
	c.Set(c.Generation(), "k", Page{})
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheBounded(t *testing.T) {
	c := NewCache(time.Hour)
	for i := 0; i < maxCacheEntries+10; i++ {
		c.Set(c.Generation(), Query{Offset: i}.key(), Page{})
	}
	assert.LessOrEqual(t, c.Len(), maxCacheEntries)
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortNew, ParseSort("new"))
	assert.Equal(t, SortTop, ParseSort("top"))
	assert.Equal(t, SortHot, ParseSort("hot"))
	assert.Equal(t, SortHot, ParseSort(""))
	assert.Equal(t, SortHot, ParseSort("controversial"))
}
