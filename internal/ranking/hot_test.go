package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const hour = 3600.0

func TestHotScoreDecaysWithAge(t *testing.T) {
	assert.Greater(t, HotScore(10, 1*hour), HotScore(10, 100*hour))

	for _, net := range []int64{-50, -1, 0, 1, 50} {
		prev := HotScore(net, 0)
		for _, age := range []float64{0.5 * hour, hour, 24 * hour, 240 * hour} {
			cur := HotScore(net, age)
			assert.Less(t, cur, prev, "net=%d age=%v", net, age)
			prev = cur
		}
	}
}

func TestHotScoreIncreasesWithVotes(t *testing.T) {
	assert.Greater(t, HotScore(10, 5*hour), HotScore(1, 5*hour))

	prev := HotScore(-100, 3*hour)
	for net := int64(-99); net <= 100; net++ {
		cur := HotScore(net, 3*hour)
		assert.Greater(t, cur, prev, "net=%d", net)
		prev = cur
	}
}

func TestHotScoreDeterministic(t *testing.T) {
	assert.Equal(t, HotScore(42, 7*hour), HotScore(42, 7*hour))
}

func TestHotScoreClampsNegativeAge(t *testing.T) {
	assert.Equal(t, HotScore(5, 0), HotScore(5, -hour))
	assert.Equal(t, HotScore(5, 0), HotScore(5, math.NaN()))
}

func TestScorerGravity(t *testing.T) {
	slow := NewScorer(1.2)
	fast := NewScorer(2.0)
	// Higher gravity loses more rank over the same window.
	slowDrop := slow.Score(10, hour) - slow.Score(10, 48*hour)
	fastDrop := fast.Score(10, hour) - fast.Score(10, 48*hour)
	assert.Greater(t, fastDrop, slowDrop)

	assert.Equal(t, DefaultGravity, NewScorer(0).Gravity)
}
