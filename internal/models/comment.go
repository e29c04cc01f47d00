package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxCommentDepth caps reply nesting: replies to replies attach at this depth.
const MaxCommentDepth = 1

type Comment struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DealID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"deal_id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ParentID      *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Content       string     `gorm:"not null" json:"content"`
	Depth         int        `gorm:"not null;default:0" json:"depth"`
	UpvoteCount   uint32     `gorm:"not null;default:0;check:chk_comments_upvote_count,upvote_count >= 0" json:"upvote_count"`
	DownvoteCount uint32     `gorm:"not null;default:0;check:chk_comments_downvote_count,downvote_count >= 0" json:"downvote_count"`
	Status        Status     `gorm:"type:varchar(16);not null;default:active" json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	return nil
}

// CommentNode is a comment with its replies, as rendered under a deal.
type CommentNode struct {
	Comment
	Children []*CommentNode `json:"children"`
}

// BuildCommentTree nests comments under their parents. Comments whose parent
// is absent from the slice become roots. Input order is preserved.
func BuildCommentTree(comments []Comment) []*CommentNode {
	nodes := make(map[uuid.UUID]*CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &CommentNode{Comment: comments[i], Children: []*CommentNode{}}
	}

	roots := []*CommentNode{}
	for i := range comments {
		node := nodes[comments[i].ID]
		if pid := comments[i].ParentID; pid != nil {
			if parent, ok := nodes[*pid]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// RedactRemoved prepares a deal's comments for display. A removed comment
// with visible replies stays in place with its content and author cleared so
// the replies keep their parent; any other removed comment is dropped.
func RedactRemoved(comments []Comment) []Comment {
	byID := make(map[uuid.UUID]*Comment, len(comments))
	for i := range comments {
		byID[comments[i].ID] = &comments[i]
	}

	keep := make(map[uuid.UUID]bool, len(comments))
	for i := range comments {
		if comments[i].Status == StatusRemoved {
			continue
		}
		keep[comments[i].ID] = true
		for pid := comments[i].ParentID; pid != nil; {
			parent, ok := byID[*pid]
			if !ok || keep[parent.ID] {
				break
			}
			keep[parent.ID] = true
			pid = parent.ParentID
		}
	}

	out := make([]Comment, 0, len(keep))
	for _, c := range comments {
		if !keep[c.ID] {
			continue
		}
		if c.Status == StatusRemoved {
			c.Content = ""
			c.UserID = uuid.Nil
		}
		out = append(out, c)
	}
	return out
}
