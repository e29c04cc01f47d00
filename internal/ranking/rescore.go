package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/dealdrop/backend/internal/metrics"
	"github.com/dealdrop/backend/internal/models"
)

// Invalidator is notified after a sweep changes stored scores or statuses.
type Invalidator interface {
	Invalidate()
}

// Rescorer periodically refreshes hot scores. Votes rescore a deal inside
// their own transaction, but a deal nobody votes on still ages, so its stored
// score drifts above where it belongs until something recomputes it.
type Rescorer struct {
	db          *gorm.DB
	scorer      Scorer
	interval    time.Duration
	batchSize   int
	now         func() time.Time
	invalidator Invalidator
	metrics     *metrics.Collector
	log         *slog.Logger
}

type RescorerConfig struct {
	Scorer      Scorer
	Interval    time.Duration
	BatchSize   int
	Invalidator Invalidator
	Metrics     *metrics.Collector
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewRescorer(db *gorm.DB, cfg RescorerConfig) *Rescorer {
	r := &Rescorer{
		db:          db,
		scorer:      cfg.Scorer,
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		now:         cfg.Now,
		invalidator: cfg.Invalidator,
		metrics:     cfg.Metrics,
		log:         cfg.Logger,
	}
	if r.scorer.Gravity <= 0 {
		r.scorer = NewScorer(DefaultGravity)
	}
	if r.batchSize <= 0 {
		r.batchSize = 500
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// SweepResult counts what one sweep changed.
type SweepResult struct {
	Expired  int64
	Rescored int64
}

// Sweep marks active deals past their expiry as expired, then recomputes the
// hot score of every remaining active deal from its counters and age.
func (r *Rescorer) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := r.now()

	expire := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.StatusActive, now).
		Update("status", models.StatusExpired)
	if expire.Error != nil {
		return res, fmt.Errorf("expire deals: %w", expire.Error)
	}
	res.Expired = expire.RowsAffected

	var batch []models.Deal
	err := r.db.WithContext(ctx).
		Select("id", "upvote_count", "downvote_count", "created_at").
		Where("status = ?", models.StatusActive).
		FindInBatches(&batch, r.batchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				ok, err := r.rescore(ctx, batch[i], now)
				if err != nil {
					return err
				}
				if ok {
					res.Rescored++
				}
			}
			return nil
		}).Error
	if err != nil {
		return res, fmt.Errorf("rescore deals: %w", err)
	}

	if r.invalidator != nil && (res.Expired > 0 || res.Rescored > 0) {
		r.invalidator.Invalidate()
	}
	r.metrics.SweepFinished(res.Rescored, res.Expired)
	return res, nil
}

// rescore writes the score for d's counters as they were read. A vote that
// changed them since has already stored a score for the new counters in its
// own transaction, so the write only lands while the row still holds the
// counters the score was computed from.
func (r *Rescorer) rescore(ctx context.Context, d models.Deal, now time.Time) (bool, error) {
	score := r.scorer.Score(d.NetScore(), now.Sub(d.CreatedAt).Seconds())
	// UpdateColumn skips updated_at; a rescore is not an edit.
	tx := r.db.WithContext(ctx).Model(&models.Deal{}).
		Where("id = ? AND upvote_count = ? AND downvote_count = ?", d.ID, d.UpvoteCount, d.DownvoteCount).
		UpdateColumn("hot_score", score)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A zero interval disables the loop.
func (r *Rescorer) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Info("hot score rescoring disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		res, err := r.Sweep(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("hot score sweep failed", "error", err)
		} else {
			r.log.Info("hot score sweep finished",
				"expired", res.Expired,
				"rescored", res.Rescored,
				"took", time.Since(start),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
