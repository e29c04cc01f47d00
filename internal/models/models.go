package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state shared by deals and comments.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRemoved Status = "removed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusRemoved:
		return true
	}
	return false
}

// Category groups deals; feeds filter on it by slug.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Label     string    `gorm:"not null" json:"label"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Icon      *string   `json:"icon,omitempty"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// All returns every model the schema is migrated from, in dependency order.
func All() []any {
	return []any{&Category{}, &Deal{}, &Comment{}, &Vote{}}
}
