package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks vote, feed and rescore activity. A nil *Collector is valid
// and records nothing.
type Collector struct {
	votesApplied  *prometheus.CounterVec
	voteErrors    *prometheus.CounterVec
	feedLatency   *prometheus.HistogramVec
	feedCache     *prometheus.CounterVec
	rescoreSweeps prometheus.Counter
	rescoredDeals *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		votesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deals",
			Name:      "votes_applied_total",
			Help:      "Committed vote transactions by target type and ledger action.",
		}, []string{"target", "action"}),
		voteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deals",
			Name:      "vote_errors_total",
			Help:      "Rejected or failed vote requests by error code.",
		}, []string{"code"}),
		feedLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deals",
			Name:      "feed_request_duration_seconds",
			Help:      "Feed query latency by sort order.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sort"}),
		feedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deals",
			Name:      "feed_cache_requests_total",
			Help:      "Feed page cache lookups by result.",
		}, []string{"result"}),
		rescoreSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deals",
			Name:      "rescore_sweeps_total",
			Help:      "Completed hot score sweeps.",
		}),
		rescoredDeals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deals",
			Name:      "rescore_deals_total",
			Help:      "Deals touched by sweeps, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.votesApplied,
		c.voteErrors,
		c.feedLatency,
		c.feedCache,
		c.rescoreSweeps,
		c.rescoredDeals,
	)
	return c
}

func (c *Collector) VoteApplied(target, action string) {
	if c == nil {
		return
	}
	c.votesApplied.WithLabelValues(target, action).Inc()
}

func (c *Collector) VoteFailed(code string) {
	if c == nil {
		return
	}
	c.voteErrors.WithLabelValues(code).Inc()
}

func (c *Collector) FeedServed(sort string, took time.Duration) {
	if c == nil {
		return
	}
	c.feedLatency.WithLabelValues(sort).Observe(took.Seconds())
}

func (c *Collector) FeedCache(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.feedCache.WithLabelValues(result).Inc()
}

func (c *Collector) SweepFinished(rescored, expired int64) {
	if c == nil {
		return
	}
	c.rescoreSweeps.Inc()
	c.rescoredDeals.WithLabelValues("rescored").Add(float64(rescored))
	c.rescoredDeals.WithLabelValues("expired").Add(float64(expired))
}
