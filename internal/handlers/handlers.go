package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealdrop/backend/internal/apperrors"
	"github.com/dealdrop/backend/internal/feed"
	"github.com/dealdrop/backend/internal/ranking"
	"github.com/dealdrop/backend/internal/votes"
)

// Handler combines all handler types
type Handler struct {
	Deal     *DealHandler
	Comment  *CommentHandler
	Vote     *VoteHandler
	Category *CategoryHandler
}

// Deps are the services handlers are built from.
type Deps struct {
	DB     *gorm.DB
	Votes  *votes.Engine
	Feed   *feed.Service
	Scorer ranking.Scorer
	Logger *slog.Logger
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{
		Deal:     NewDealHandler(d.DB, d.Feed, d.Votes, d.Scorer),
		Comment:  NewCommentHandler(d.DB, d.Votes, d.Feed),
		Vote:     NewVoteHandler(d.Votes),
		Category: NewCategoryHandler(d.Feed),
	}
}

// respondError renders err as {"error": code, "message": msg}. Store details
// stay in the logs.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Database("internal error", err)
	}

	body := gin.H{"error": appErr.Code, "message": appErr.Message}
	if apperrors.Retryable(appErr) {
		body["retryable"] = true
	}
	if appErr.Origin != nil {
		_ = c.Error(appErr.Origin)
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(appErr.Code), body)
}

func invalidInput(c *gin.Context, message string) {
	respondError(c, apperrors.InvalidInput(message))
}

// pathID parses a uuid path parameter, rendering 400 on failure.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		invalidInput(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// voteMap renders per-target directions with string keys, omitting targets
// the user has not voted on.
func voteMap(m map[uuid.UUID]votes.Direction) map[string]votes.Direction {
	out := make(map[string]votes.Direction, len(m))
	for id, d := range m {
		out[id.String()] = d
	}
	return out
}

func statusOK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}
