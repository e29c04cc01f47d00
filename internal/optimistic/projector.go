// Package optimistic predicts the result of vote requests before the server
// answers, so a UI can update immediately and reconcile later.
package optimistic

import (
	"sync"

	"github.com/dealdrop/backend/internal/votes"
)

// Predict is what the server will answer for dir given state, assuming no
// other voter acts in between. It uses the same transition table as the
// vote engine.
func Predict(state votes.Tally, dir votes.Direction) votes.Tally {
	if !dir.Valid() {
		return state
	}
	return votes.Apply(state, dir)
}

// Projector tracks one target's vote state for one user across in-flight
// requests. Requests resolve in the order they were made.
type Projector struct {
	mu        sync.Mutex
	confirmed votes.Tally
	pending   []votes.Direction
}

func NewProjector(initial votes.Tally) *Projector {
	return &Projector{confirmed: initial}
}

// Current is the state to display: the last server state with every pending
// intent folded over it.
func (p *Projector) Current() votes.Tally {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current()
}

func (p *Projector) current() votes.Tally {
	s := p.confirmed
	for _, d := range p.pending {
		s = Predict(s, d)
	}
	return s
}

// Confirmed is the last state the server reported.
func (p *Projector) Confirmed() votes.Tally {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirmed
}

func (p *Projector) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Request records an intent and returns the provisional state. Rapid repeated
// taps chain: each prediction starts from the previous one.
func (p *Projector) Request(dir votes.Direction) votes.Tally {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dir.Valid() {
		p.pending = append(p.pending, dir)
	}
	return p.current()
}

// Reconciliation reports how a server answer compared with the prediction.
type Reconciliation struct {
	Predicted votes.Tally
	Server    votes.Tally
	State     votes.Tally // what to display now
	Diverged  bool
}

// Confirm resolves the oldest pending intent with the server's answer. The
// server state becomes authoritative; intents still in flight are re-applied
// on top of it. Answers must arrive in the order the intents were sent; callers
// that share a target over the network send one intent at a time.
func (p *Projector) Confirm(server votes.Tally) Reconciliation {
	p.mu.Lock()
	defer p.mu.Unlock()

	predicted := p.confirmed
	if len(p.pending) > 0 {
		predicted = Predict(p.confirmed, p.pending[0])
		p.pending = p.pending[1:]
	}
	p.confirmed = server

	return Reconciliation{
		Predicted: predicted,
		Server:    server,
		State:     p.current(),
		Diverged:  predicted != server,
	}
}

// Fail drops every pending intent and returns to the last server state.
// Later intents were predicted on top of the failed one, so none of them can
// be trusted.
func (p *Projector) Fail() votes.Tally {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = nil
	return p.confirmed
}
