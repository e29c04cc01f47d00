package votes

import (
	"encoding/json"
	"fmt"
)

// Direction is a vote's sign. None means the user has no vote on the target.
type Direction int8

const (
	Down Direction = -1
	None Direction = 0
	Up   Direction = 1
)

// Valid reports whether d may be requested by a voter.
func (d Direction) Valid() bool {
	return d == Up || d == Down
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// MarshalJSON encodes None as null and a vote as 1 or -1.
func (d Direction) MarshalJSON() ([]byte, error) {
	if d == None {
		return []byte("null"), nil
	}
	return json.Marshal(int8(d))
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = None
		return nil
	}
	var v int8
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch Direction(v) {
	case Up, Down, None:
		*d = Direction(v)
		return nil
	}
	return fmt.Errorf("invalid vote direction %d", v)
}

// Action is the change a vote request makes to the ledger row.
type Action string

const (
	ActionInsert Action = "insert"
	ActionDelete Action = "delete"
	ActionFlip   Action = "flip"
)

// Delta is the change applied to the target's counters.
type Delta struct {
	Up   int64
	Down int64
}

// Transition is the outcome of requesting a direction from a prior vote state.
type Transition struct {
	Next   Direction
	Action Action
	Delta  Delta
}

// Resolve is the single transition table for votes:
//
//	none + d      -> d,    insert, +1 on d
//	d    + d      -> none, delete, -1 on d   (toggle-off)
//	d    + -d     -> -d,   flip,   -1 on d, +1 on -d
//
// requested must be Up or Down.
func Resolve(prev, requested Direction) Transition {
	switch prev {
	case None:
		return Transition{Next: requested, Action: ActionInsert, Delta: bump(requested, 1)}
	case requested:
		return Transition{Next: None, Action: ActionDelete, Delta: bump(requested, -1)}
	default:
		d := bump(prev, -1)
		n := bump(requested, 1)
		return Transition{Next: requested, Action: ActionFlip, Delta: Delta{Up: d.Up + n.Up, Down: d.Down + n.Down}}
	}
}

func bump(d Direction, by int64) Delta {
	if d == Up {
		return Delta{Up: by}
	}
	return Delta{Down: by}
}

// Tally is the vote state of one target as seen by one user.
type Tally struct {
	UpvoteCount   uint32    `json:"upvote_count"`
	DownvoteCount uint32    `json:"downvote_count"`
	UserVote      Direction `json:"user_vote"`
}

// Net is upvotes minus downvotes.
func (t Tally) Net() int64 {
	return int64(t.UpvoteCount) - int64(t.DownvoteCount)
}

// Apply folds a requested direction into t using Resolve. Counters saturate at
// zero so a tally built from stale counts never goes negative.
func Apply(t Tally, requested Direction) Tally {
	tr := Resolve(t.UserVote, requested)
	return Tally{
		UpvoteCount:   addClamped(t.UpvoteCount, tr.Delta.Up),
		DownvoteCount: addClamped(t.DownvoteCount, tr.Delta.Down),
		UserVote:      tr.Next,
	}
}

func addClamped(v uint32, delta int64) uint32 {
	n := int64(v) + delta
	if n < 0 {
		return 0
	}
	return uint32(n)
}
