package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealdrop/backend/internal/apperrors"
	"github.com/dealdrop/backend/internal/middleware"
	"github.com/dealdrop/backend/internal/models"
	"github.com/dealdrop/backend/internal/votes"
)

// Invalidator drops cached feed pages.
type Invalidator interface {
	Invalidate()
}

type CommentHandler struct {
	db          *gorm.DB
	votes       *votes.Engine
	invalidator Invalidator
}

func NewCommentHandler(db *gorm.DB, v *votes.Engine, inv Invalidator) *CommentHandler {
	return &CommentHandler{db: db, votes: v, invalidator: inv}
}

func (h *CommentHandler) findDeal(tx *gorm.DB, id uuid.UUID) (models.Deal, error) {
	var deal models.Deal
	err := tx.Select("id", "status").Take(&deal, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return deal, apperrors.NotFound("deal")
	}
	if err != nil {
		return deal, apperrors.Database("failed to fetch deal", err)
	}
	if deal.Status == models.StatusRemoved {
		return deal, apperrors.NotFound("deal")
	}
	return deal, nil
}

// GetComments returns the comment tree of a deal, oldest first, with the
// caller's votes. Removed comments that still have replies are shown as
// empty placeholders.
func (h *CommentHandler) GetComments(c *gin.Context) {
	dealID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	if _, err := h.findDeal(db, dealID); err != nil {
		respondError(c, err)
		return
	}

	var comments []models.Comment
	err := db.Where("deal_id = ?", dealID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		respondError(c, apperrors.Database("failed to fetch comments", err))
		return
	}
	comments = models.RedactRemoved(comments)

	ids := make([]uuid.UUID, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	userVotes, err := h.votes.UserVotes(ctx, middleware.UserID(c), votes.TargetComment, ids)
	if err != nil {
		respondError(c, err)
		return
	}

	statusOK(c, gin.H{
		"comments":   models.BuildCommentTree(comments),
		"user_votes": voteMap(userVotes),
	})
}

type createCommentRequest struct {
	Content  string     `json:"content" binding:"required,max=5000"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// CreateComment adds a comment and bumps the deal's comment count in the
// same transaction. Replies deeper than MaxCommentDepth attach to the
// deepest allowed ancestor.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	dealID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input createCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidInput(c, err.Error())
		return
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		invalidInput(c, "content must not be blank")
		return
	}

	comment := models.Comment{
		DealID:  dealID,
		UserID:  middleware.UserID(c),
		Content: content,
	}
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if _, err := h.findDeal(tx, dealID); err != nil {
			return err
		}

		if input.ParentID != nil {
			var parent models.Comment
			err := tx.Take(&parent, "id = ? AND deal_id = ?", *input.ParentID, dealID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.InvalidInput("parent comment does not belong to this deal")
			}
			if err != nil {
				return apperrors.Database("failed to fetch parent comment", err)
			}

			parentID := parent.ID
			depth := parent.Depth + 1
			if depth > models.MaxCommentDepth && parent.ParentID != nil {
				parentID = *parent.ParentID
				depth = models.MaxCommentDepth
			}
			comment.ParentID = &parentID
			comment.Depth = depth
		}

		if err := tx.Create(&comment).Error; err != nil {
			return apperrors.Database("failed to create comment", err)
		}
		err := tx.Model(&models.Deal{}).Where("id = ?", dealID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
		if err != nil {
			return apperrors.Database("failed to update comment count", err)
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if h.invalidator != nil {
		h.invalidator.Invalidate()
	}

	c.JSON(http.StatusCreated, comment)
}
