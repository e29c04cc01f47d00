package votes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dealdrop/backend/internal/apperrors"
	"github.com/dealdrop/backend/internal/metrics"
	"github.com/dealdrop/backend/internal/models"
	"github.com/dealdrop/backend/internal/ranking"
)

// TargetType names the kind of entity a vote points at.
type TargetType string

const (
	TargetDeal    TargetType = "deal"
	TargetComment TargetType = "comment"
)

func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetDeal, TargetComment:
		return TargetType(s), nil
	}
	return "", apperrors.InvalidInput(fmt.Sprintf("unknown target type %q", s))
}

// column is the votes column referencing this target type.
func (t TargetType) column() string {
	if t == TargetComment {
		return "comment_id"
	}
	return "deal_id"
}

type Target struct {
	Type TargetType
	ID   uuid.UUID
}

// Invalidator is told when committed votes may have changed feed ordering.
type Invalidator interface {
	Invalidate()
}

// Engine applies vote intents against the vote ledger and the entity counters
// in a single transaction.
type Engine struct {
	db          *gorm.DB
	scorer      ranking.Scorer
	now         func() time.Time
	invalidator Invalidator
	metrics     *metrics.Collector
	log         *slog.Logger
}

type Option func(*Engine)

func WithScorer(s ranking.Scorer) Option { return func(e *Engine) { e.scorer = s } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithInvalidator(inv Invalidator) Option { return func(e *Engine) { e.invalidator = inv } }
func WithMetrics(m *metrics.Collector) Option { return func(e *Engine) { e.metrics = m } }
func WithLogger(log *slog.Logger) Option { return func(e *Engine) { e.log = log } }

func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		scorer: ranking.NewScorer(ranking.DefaultGravity),
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockedTarget is the part of a deal or comment the vote transaction needs.
type lockedTarget struct {
	up, down  uint32
	status    models.Status
	createdAt time.Time
}

// ApplyVote records userID's requested direction on target and returns the
// target's new counts with the user's resulting vote. Voting the same
// direction twice removes the vote; voting the opposite direction flips it.
//
// Either the ledger write, the counter deltas and (for deals) the hot score
// all commit, or none of them do. Conflicts are reported as
// TRANSACTION_CONFLICT and are safe to retry.
func (e *Engine) ApplyVote(ctx context.Context, userID uuid.UUID, target Target, requested Direction) (Tally, error) {
	result, tr, err := e.applyVote(ctx, userID, target, requested)
	if err != nil {
		code := apperrors.Code(err)
		e.metrics.VoteFailed(code)
		e.log.Warn("vote rejected",
			"user_id", userID,
			"target_type", target.Type,
			"target_id", target.ID,
			"direction", requested,
			"code", code,
			"error", err,
		)
		return Tally{}, err
	}

	if target.Type == TargetDeal && e.invalidator != nil {
		e.invalidator.Invalidate()
	}
	e.metrics.VoteApplied(string(target.Type), string(tr.Action))
	e.log.Debug("vote applied",
		"user_id", userID,
		"target_type", target.Type,
		"target_id", target.ID,
		"action", tr.Action,
		"upvotes", result.UpvoteCount,
		"downvotes", result.DownvoteCount,
	)
	return result, nil
}

func (e *Engine) applyVote(ctx context.Context, userID uuid.UUID, target Target, requested Direction) (Tally, Transition, error) {
	if userID == uuid.Nil {
		return Tally{}, Transition{}, apperrors.Unauthenticated("voting requires a signed-in user")
	}
	if !requested.Valid() {
		return Tally{}, Transition{}, apperrors.InvalidInput("direction must be 1 or -1")
	}
	if target.Type != TargetDeal && target.Type != TargetComment {
		return Tally{}, Transition{}, apperrors.InvalidInput(fmt.Sprintf("unknown target type %q", target.Type))
	}

	var (
		result Tally
		tr     Transition
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockTarget(tx, target)
		if err != nil {
			return err
		}

		prev, existing, err := currentVote(tx, userID, target)
		if err != nil {
			return err
		}

		tr = Resolve(prev, requested)
		if err := writeLedger(tx, userID, target, existing, requested, tr.Action); err != nil {
			return err
		}

		up := int64(locked.up) + tr.Delta.Up
		down := int64(locked.down) + tr.Delta.Down
		if up < 0 || down < 0 {
			return apperrors.Database("vote counters out of sync with ledger", nil)
		}

		updates := map[string]any{
			"upvote_count":   gorm.Expr("upvote_count + ?", tr.Delta.Up),
			"downvote_count": gorm.Expr("downvote_count + ?", tr.Delta.Down),
		}
		if target.Type == TargetDeal {
			age := e.now().Sub(locked.createdAt).Seconds()
			updates["hot_score"] = e.scorer.Score(up-down, age)
		}

		if err := tx.Model(targetModel(target.Type)).Where("id = ?", target.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update counters: %w", err)
		}

		result = Tally{UpvoteCount: uint32(up), DownvoteCount: uint32(down), UserVote: tr.Next}
		return nil
	})
	if err != nil {
		return Tally{}, Transition{}, classify(err)
	}
	return result, tr, nil
}

func targetModel(t TargetType) any {
	if t == TargetComment {
		return &models.Comment{}
	}
	return &models.Deal{}
}

// lockTarget reads the target row with FOR UPDATE, serialising concurrent
// votes on the same entity until the transaction ends.
func lockTarget(tx *gorm.DB, target Target) (lockedTarget, error) {
	locking := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	var (
		lt  lockedTarget
		err error
	)

	switch target.Type {
	case TargetComment:
		var c models.Comment
		err = locking.Select("id", "upvote_count", "downvote_count", "status", "created_at").
			Take(&c, "id = ?", target.ID).Error
		lt = lockedTarget{up: c.UpvoteCount, down: c.DownvoteCount, status: c.Status, createdAt: c.CreatedAt}
	default:
		var d models.Deal
		err = locking.Select("id", "upvote_count", "downvote_count", "status", "created_at").
			Take(&d, "id = ?", target.ID).Error
		lt = lockedTarget{up: d.UpvoteCount, down: d.DownvoteCount, status: d.Status, createdAt: d.CreatedAt}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lockedTarget{}, apperrors.NotFound(string(target.Type))
	}
	if err != nil {
		return lockedTarget{}, fmt.Errorf("lock %s: %w", target.Type, err)
	}
	if lt.status == models.StatusRemoved {
		return lockedTarget{}, apperrors.Removed(string(target.Type))
	}
	return lt, nil
}

func currentVote(tx *gorm.DB, userID uuid.UUID, target Target) (Direction, *models.Vote, error) {
	var existing models.Vote
	err := tx.Where("user_id = ? AND "+target.Type.column()+" = ?", userID, target.ID).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return None, nil, nil
	}
	if err != nil {
		return None, nil, fmt.Errorf("look up vote: %w", err)
	}
	return Direction(existing.VoteType), &existing, nil
}

func writeLedger(tx *gorm.DB, userID uuid.UUID, target Target, existing *models.Vote, requested Direction, action Action) error {
	switch action {
	case ActionInsert:
		vote := models.Vote{UserID: userID, VoteType: int16(requested)}
		id := target.ID
		if target.Type == TargetComment {
			vote.CommentID = &id
		} else {
			vote.DealID = &id
		}
		if err := tx.Create(&vote).Error; err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
	case ActionDelete:
		if err := tx.Delete(existing).Error; err != nil {
			return fmt.Errorf("delete vote: %w", err)
		}
	case ActionFlip:
		if err := tx.Model(existing).Update("vote_type", int16(requested)).Error; err != nil {
			return fmt.Errorf("flip vote: %w", err)
		}
	}
	return nil
}

// PostgreSQL SQLSTATEs that mean "another transaction got there first".
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

func classify(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict("concurrent vote on the same target", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation, sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return apperrors.Conflict("concurrent vote on the same target", err)
		}
	}
	return apperrors.Database("vote transaction failed", err)
}

// UserVotes returns userID's current vote on each of ids that has one.
// An anonymous user or an empty id list yields an empty map.
func (e *Engine) UserVotes(ctx context.Context, userID uuid.UUID, targetType TargetType, ids []uuid.UUID) (map[uuid.UUID]Direction, error) {
	out := make(map[uuid.UUID]Direction)
	if userID == uuid.Nil || len(ids) == 0 {
		return out, nil
	}

	var rows []models.Vote
	col := targetType.column()
	err := e.db.WithContext(ctx).
		Select(col, "vote_type").
		Where("user_id = ? AND "+col+" IN ?", userID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Database("failed to load user votes", err)
	}

	for _, v := range rows {
		switch {
		case v.DealID != nil:
			out[*v.DealID] = Direction(v.VoteType)
		case v.CommentID != nil:
			out[*v.CommentID] = Direction(v.VoteType)
		}
	}
	return out, nil
}
