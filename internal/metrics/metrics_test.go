package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.VoteApplied("deal", "insert")
	c.VoteApplied("deal", "insert")
	c.VoteApplied("comment", "flip")
	c.VoteFailed("NOT_FOUND")
	c.FeedCache(true)
	c.FeedCache(false)
	c.FeedCache(false)
	c.SweepFinished(7, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.votesApplied.WithLabelValues("deal", "insert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.votesApplied.WithLabelValues("comment", "flip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.voteErrors.WithLabelValues("NOT_FOUND")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.feedCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rescoreSweeps))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.rescoredDeals.WithLabelValues("rescored")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.rescoredDeals.WithLabelValues("expired")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.VoteApplied("deal", "insert")
		c.VoteFailed("X")
		c.FeedServed("hot", time.Millisecond)
		c.FeedCache(true)
		c.SweepFinished(1, 1)
	})
}
