// Package client is a Go client for the vote API that keeps an optimistic
// view of each target while requests are in flight.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealdrop/backend/internal/apperrors"
	"github.com/dealdrop/backend/internal/optimistic"
	"github.com/dealdrop/backend/internal/votes"
)

// Voter casts votes over HTTP and keeps one Projector per target.
type Voter struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	// OnChange, if set, is called with every state a target should display:
	// the prediction before the request and the reconciled state after it.
	OnChange func(target votes.Target, state votes.Tally)

	mu         sync.Mutex
	projectors map[votes.Target]*optimistic.Projector
	inflight   map[votes.Target]*sync.Mutex
}

func NewVoter(baseURL, token string) *Voter {
	return &Voter{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		projectors: make(map[votes.Target]*optimistic.Projector),
		inflight:   make(map[votes.Target]*sync.Mutex),
	}
}

// Track seeds the projector for target with the state the caller last saw,
// for example from a feed page. Tracking an already tracked target is a no-op.
func (v *Voter) Track(target votes.Target, state votes.Tally) *optimistic.Projector {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p, ok := v.projectors[target]; ok {
		return p
	}
	p := optimistic.NewProjector(state)
	v.projectors[target] = p
	return p
}

// lock returns the mutex that keeps at most one request per target on the wire.
func (v *Voter) lock(target votes.Target) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()

	l, ok := v.inflight[target]
	if !ok {
		l = &sync.Mutex{}
		v.inflight[target] = l
	}
	return l
}

// State is what target should display right now.
func (v *Voter) State(target votes.Target) votes.Tally {
	return v.Track(target, votes.Tally{}).Current()
}

// Outcome is the result of one Vote call.
type Outcome struct {
	Predicted votes.Tally
	optimistic.Reconciliation
}

// Vote predicts the effect of dir on target, sends it, and reconciles with
// the server's answer. On failure every pending prediction for the target is
// dropped and the last server state is restored.
//
// Votes on the same target are sent one at a time, so the server applies them
// in the order they were predicted and each answer settles its own intent.
// A vote made while another is in flight waits for it to be answered.
func (v *Voter) Vote(ctx context.Context, target votes.Target, dir votes.Direction) (Outcome, error) {
	p := v.Track(target, votes.Tally{})

	l := v.lock(target)
	l.Lock()
	defer l.Unlock()

	predicted := p.Request(dir)
	v.notify(target, predicted)

	server, err := v.post(ctx, target, dir)
	if err != nil {
		reverted := p.Fail()
		v.notify(target, reverted)
		return Outcome{Predicted: predicted}, err
	}

	r := p.Confirm(server)
	v.notify(target, r.State)
	return Outcome{Predicted: predicted, Reconciliation: r}, nil
}

func (v *Voter) notify(target votes.Target, state votes.Tally) {
	if v.OnChange != nil {
		v.OnChange(target, state)
	}
}

type voteRequest struct {
	TargetType votes.TargetType `json:"target_type"`
	TargetID   uuid.UUID        `json:"target_id"`
	Direction  votes.Direction  `json:"direction"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (v *Voter) post(ctx context.Context, target votes.Target, dir votes.Direction) (votes.Tally, error) {
	body, err := json.Marshal(voteRequest{TargetType: target.Type, TargetID: target.ID, Direction: dir})
	if err != nil {
		return votes.Tally{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL+"/api/votes", bytes.NewReader(body))
	if err != nil {
		return votes.Tally{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.Token != "" {
		req.Header.Set("Authorization", "Bearer "+v.Token)
	}

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return votes.Tally{}, fmt.Errorf("send vote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return votes.Tally{}, fmt.Errorf("vote failed with status: %d", resp.StatusCode)
		}
		return votes.Tally{}, apperrors.New(e.Error, e.Message, nil)
	}

	var tally votes.Tally
	if err := json.NewDecoder(resp.Body).Decode(&tally); err != nil {
		return votes.Tally{}, fmt.Errorf("decode vote response: %w", err)
	}
	return tally, nil
}
