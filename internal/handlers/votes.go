package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dealdrop/backend/internal/middleware"
	"github.com/dealdrop/backend/internal/votes"
)

type VoteHandler struct {
	engine *votes.Engine
}

func NewVoteHandler(engine *votes.Engine) *VoteHandler {
	return &VoteHandler{engine: engine}
}

type castVoteRequest struct {
	TargetType string          `json:"target_type" binding:"required"`
	TargetID   string          `json:"target_id" binding:"required"`
	Direction  votes.Direction `json:"direction"`
}

type directionRequest struct {
	Direction votes.Direction `json:"direction"`
}

// Cast handles POST /api/votes.
func (h *VoteHandler) Cast(c *gin.Context) {
	var input castVoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidInput(c, err.Error())
		return
	}

	targetType, err := votes.ParseTargetType(input.TargetType)
	if err != nil {
		respondError(c, err)
		return
	}
	targetID, err := uuid.Parse(input.TargetID)
	if err != nil {
		invalidInput(c, "invalid target_id")
		return
	}

	h.apply(c, votes.Target{Type: targetType, ID: targetID}, input.Direction)
}

// VoteDeal handles POST /api/deals/:id/vote.
func (h *VoteHandler) VoteDeal(c *gin.Context) {
	h.voteOn(c, votes.TargetDeal)
}

// VoteComment handles POST /api/comments/:id/vote.
func (h *VoteHandler) VoteComment(c *gin.Context) {
	h.voteOn(c, votes.TargetComment)
}

func (h *VoteHandler) voteOn(c *gin.Context, targetType votes.TargetType) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input directionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidInput(c, err.Error())
		return
	}

	h.apply(c, votes.Target{Type: targetType, ID: id}, input.Direction)
}

func (h *VoteHandler) apply(c *gin.Context, target votes.Target, dir votes.Direction) {
	tally, err := h.engine.ApplyVote(c.Request.Context(), middleware.UserID(c), target, dir)
	if err != nil {
		respondError(c, err)
		return
	}
	statusOK(c, tally)
}
