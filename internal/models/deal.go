package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Deal struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"category_id"`
	Category      *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Title         string     `gorm:"not null" json:"title"`
	Description   string     `gorm:"not null" json:"description"`
	Price         *float64   `json:"price"`
	OriginalPrice *float64   `json:"original_price"`
	URL           *string    `json:"url"`
	Location      *string    `json:"location"`
	ImageURL      *string    `json:"image_url"`
	ExpiresAt     *time.Time `json:"expires_at"`

	// Aggregates over the vote ledger, maintained inside vote transactions.
	UpvoteCount   uint32  `gorm:"not null;default:0;check:chk_deals_upvote_count,upvote_count >= 0" json:"upvote_count"`
	DownvoteCount uint32  `gorm:"not null;default:0;check:chk_deals_downvote_count,downvote_count >= 0" json:"downvote_count"`
	CommentCount  uint32  `gorm:"not null;default:0" json:"comment_count"`
	HotScore      float64 `gorm:"not null;default:0;index:idx_deals_hot,priority:2,sort:desc" json:"hot_score"`

	Status    Status    `gorm:"type:varchar(16);not null;default:active;index:idx_deals_hot,priority:1" json:"status"`
	CreatedAt time.Time `gorm:"index:idx_deals_hot,priority:3,sort:desc" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
	return nil
}

// NetScore is upvotes minus downvotes.
func (d *Deal) NetScore() int64 {
	return int64(d.UpvoteCount) - int64(d.DownvoteCount)
}
