package votes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTable(t *testing.T) {
	tests := []struct {
		name      string
		prev      Direction
		requested Direction
		want      Transition
	}{
		{"first upvote", None, Up, Transition{Next: Up, Action: ActionInsert, Delta: Delta{Up: 1}}},
		{"first downvote", None, Down, Transition{Next: Down, Action: ActionInsert, Delta: Delta{Down: 1}}},
		{"toggle off upvote", Up, Up, Transition{Next: None, Action: ActionDelete, Delta: Delta{Up: -1}}},
		{"toggle off downvote", Down, Down, Transition{Next: None, Action: ActionDelete, Delta: Delta{Down: -1}}},
		{"flip up to down", Up, Down, Transition{Next: Down, Action: ActionFlip, Delta: Delta{Up: -1, Down: 1}}},
		{"flip down to up", Down, Up, Transition{Next: Up, Action: ActionFlip, Delta: Delta{Up: 1, Down: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.prev, tt.requested))
		})
	}
}

func TestApplyFlip(t *testing.T) {
	got := Apply(Tally{UpvoteCount: 5, DownvoteCount: 2, UserVote: Up}, Down)
	assert.Equal(t, Tally{UpvoteCount: 4, DownvoteCount: 3, UserVote: Down}, got)
}

func TestApplyToggleCycle(t *testing.T) {
	start := Tally{UpvoteCount: 3, DownvoteCount: 1}

	first := Apply(start, Up)
	assert.Equal(t, Tally{UpvoteCount: 4, DownvoteCount: 1, UserVote: Up}, first)

	second := Apply(first, Up)
	assert.Equal(t, start, second)

	third := Apply(second, Up)
	assert.Equal(t, first, third)
}

func TestApplyScenario(t *testing.T) {
	s := Apply(Tally{}, Up)
	assert.Equal(t, Tally{UpvoteCount: 1, UserVote: Up}, s)

	s = Apply(s, Down)
	assert.Equal(t, Tally{DownvoteCount: 1, UserVote: Down}, s)

	s = Apply(s, Down)
	assert.Equal(t, Tally{}, s)
}

func TestApplyNeverNegative(t *testing.T) {
	seq := []Direction{Up, Down, Down, Up, Up, Up, Down, Up, Down, Down}
	s := Tally{}
	for _, d := range seq {
		s = Apply(s, d)
		assert.GreaterOrEqual(t, s.Net(), int64(-1))
		assert.LessOrEqual(t, s.UpvoteCount+s.DownvoteCount, uint32(1))
	}

	// A stale tally that claims a vote with zero counts saturates at zero.
	assert.Equal(t, Tally{}, Apply(Tally{UserVote: Up}, Up))
}

func TestDirectionJSON(t *testing.T) {
	b, err := json.Marshal(Tally{UpvoteCount: 1, UserVote: None})
	require.NoError(t, err)
	assert.JSONEq(t, `{"upvote_count":1,"downvote_count":0,"user_vote":null}`, string(b))

	b, err = json.Marshal(Tally{DownvoteCount: 2, UserVote: Down})
	require.NoError(t, err)
	assert.JSONEq(t, `{"upvote_count":0,"downvote_count":2,"user_vote":-1}`, string(b))

	var d Direction
	require.NoError(t, json.Unmarshal([]byte("1"), &d))
	assert.Equal(t, Up, d)
	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	assert.Equal(t, None, d)
	assert.Error(t, json.Unmarshal([]byte("2"), &d))
}

func TestDirectionValid(t *testing.T) {
	assert.True(t, Up.Valid())
	assert.True(t, Down.Valid())
	assert.False(t, None.Valid())
	assert.False(t, Direction(3).Valid())
}
