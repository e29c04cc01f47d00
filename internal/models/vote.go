package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is one user's current vote on exactly one deal or comment. Toggling a
// vote off deletes the row, so at most one row exists per (user, target).
type Vote struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_deal,priority:1;uniqueIndex:idx_votes_user_comment,priority:1" json:"user_id"`
	DealID    *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_votes_user_deal,priority:2;check:chk_votes_single_target,num_nonnulls(deal_id, comment_id) = 1" json:"deal_id,omitempty"`
	CommentID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_votes_user_comment,priority:2" json:"comment_id,omitempty"`
	VoteType  int16      `gorm:"not null;check:chk_votes_vote_type,vote_type IN (-1, 1)" json:"vote_type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
