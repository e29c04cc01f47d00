// Package ranking computes the time-decayed "hot" rank used to order the
// default deal feed, and keeps it fresh for deals that stop receiving votes.
package ranking

import "math"

// DefaultGravity controls how fast old deals fall out of the hot feed.
const DefaultGravity = 1.8

// Scorer computes hot scores for a given gravity.
type Scorer struct {
	Gravity float64
}

func NewScorer(gravity float64) Scorer {
	if gravity <= 0 {
		gravity = DefaultGravity
	}
	return Scorer{Gravity: gravity}
}

// Score returns the hot rank for a net vote total at the given age.
//
// It is log10 of (1+|net|)^sign(net) / (ageHours+2)^gravity: a log-magnitude
// vote term over a power-law decay. Taking the log keeps the order of the
// ratio for positive scores and makes the result strictly increasing in net
// and strictly decreasing in age for every net, negative ones included.
func (s Scorer) Score(netVotes int64, ageSeconds float64) float64 {
	if ageSeconds < 0 || math.IsNaN(ageSeconds) {
		ageSeconds = 0
	}
	ageHours := ageSeconds / 3600

	magnitude := math.Log10(1 + math.Abs(float64(netVotes)))
	var sign float64
	switch {
	case netVotes > 0:
		sign = 1
	case netVotes < 0:
		sign = -1
	}

	return sign*magnitude - s.Gravity*math.Log10(ageHours+2)
}

// HotScore scores with DefaultGravity.
func HotScore(netVotes int64, ageSeconds float64) float64 {
	return Scorer{Gravity: DefaultGravity}.Score(netVotes, ageSeconds)
}
