package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealdrop/backend/internal/apperrors"
	"github.com/dealdrop/backend/internal/feed"
	"github.com/dealdrop/backend/internal/middleware"
	"github.com/dealdrop/backend/internal/models"
	"github.com/dealdrop/backend/internal/ranking"
	"github.com/dealdrop/backend/internal/votes"
)

type DealHandler struct {
	db     *gorm.DB
	feed   *feed.Service
	votes  *votes.Engine
	scorer ranking.Scorer
}

func NewDealHandler(db *gorm.DB, f *feed.Service, v *votes.Engine, scorer ranking.Scorer) *DealHandler {
	return &DealHandler{db: db, feed: f, votes: v, scorer: scorer}
}

type feedParams struct {
	Sort     string `form:"sort"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
	Category string `form:"category"`
}

// GetDeals handles GET /api/deals.
func (h *DealHandler) GetDeals(c *gin.Context) {
	var params feedParams
	if err := c.ShouldBindQuery(&params); err != nil {
		invalidInput(c, "invalid feed parameters")
		return
	}
	h.serveFeed(c, params)
}

// GetCategoryDeals handles GET /api/categories/:slug/deals.
func (h *DealHandler) GetCategoryDeals(c *gin.Context) {
	var params feedParams
	if err := c.ShouldBindQuery(&params); err != nil {
		invalidInput(c, "invalid feed parameters")
		return
	}
	params.Category = c.Param("slug")
	h.serveFeed(c, params)
}

func (h *DealHandler) serveFeed(c *gin.Context, params feedParams) {
	ctx := c.Request.Context()
	page, err := h.feed.Fetch(ctx, feed.Query{
		Sort:         feed.ParseSort(params.Sort),
		Limit:        params.Limit,
		Offset:       params.Offset,
		CategorySlug: strings.TrimSpace(params.Category),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]uuid.UUID, len(page.Deals))
	for i, d := range page.Deals {
		ids[i] = d.ID
	}
	userVotes, err := h.votes.UserVotes(ctx, middleware.UserID(c), votes.TargetDeal, ids)
	if err != nil {
		respondError(c, err)
		return
	}

	statusOK(c, gin.H{
		"deals":      page.Deals,
		"has_more":   page.HasMore,
		"user_votes": voteMap(userVotes),
	})
}

// GetDeal handles GET /api/deals/:id. Removed deals are not found.
func (h *DealHandler) GetDeal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var deal models.Deal
	err := h.db.WithContext(c.Request.Context()).
		Preload("Category").
		Where("status <> ?", models.StatusRemoved).
		Take(&deal, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, apperrors.NotFound("deal"))
		return
	}
	if err != nil {
		respondError(c, apperrors.Database("failed to fetch deal", err))
		return
	}

	userVotes, err := h.votes.UserVotes(c.Request.Context(), middleware.UserID(c), votes.TargetDeal, []uuid.UUID{deal.ID})
	if err != nil {
		respondError(c, err)
		return
	}

	statusOK(c, gin.H{
		"deal":      deal,
		"user_vote": userVotes[deal.ID],
	})
}

type createDealRequest struct {
	Title         string     `json:"title" binding:"required,max=200"`
	Description   string     `json:"description" binding:"required"`
	Category      string     `json:"category" binding:"required"`
	Price         *float64   `json:"price" binding:"omitempty,gte=0"`
	OriginalPrice *float64   `json:"original_price" binding:"omitempty,gte=0"`
	URL           *string    `json:"url" binding:"omitempty,url"`
	Location      *string    `json:"location"`
	ImageURL      *string    `json:"image_url" binding:"omitempty,url"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// CreateDeal handles POST /api/deals.
func (h *DealHandler) CreateDeal(c *gin.Context) {
	var input createDealRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidInput(c, err.Error())
		return
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now()) {
		invalidInput(c, "expires_at must be in the future")
		return
	}

	ctx := c.Request.Context()
	var cat models.Category
	err := h.db.WithContext(ctx).Take(&cat, "slug = ?", input.Category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		invalidInput(c, "unknown category")
		return
	}
	if err != nil {
		respondError(c, apperrors.Database("failed to resolve category", err))
		return
	}

	deal := models.Deal{
		UserID:        middleware.UserID(c),
		CategoryID:    cat.ID,
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		URL:           input.URL,
		Location:      input.Location,
		ImageURL:      input.ImageURL,
		ExpiresAt:     input.ExpiresAt,
		Status:        models.StatusActive,
		HotScore:      h.scorer.Score(0, 0),
	}
	if err := h.db.WithContext(ctx).Create(&deal).Error; err != nil {
		respondError(c, apperrors.Database("failed to create deal", err))
		return
	}
	h.feed.Invalidate()

	deal.Category = &cat
	c.JSON(http.StatusCreated, deal)
}

type updateStatusRequest struct {
	Status models.Status `json:"status" binding:"required"`
}

// UpdateDealStatus handles PATCH /api/deals/:id/status (owner only). Deals
// can be expired or removed; a removed deal stays removed.
func (h *DealHandler) UpdateDealStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input updateStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidInput(c, err.Error())
		return
	}
	if input.Status != models.StatusExpired && input.Status != models.StatusRemoved {
		invalidInput(c, "status must be expired or removed")
		return
	}

	userID := middleware.UserID(c)
	var deal models.Deal
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&deal, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("deal")
			}
			return apperrors.Database("failed to fetch deal", err)
		}
		if deal.UserID != userID {
			return apperrors.Forbidden("only the author can change a deal's status")
		}
		if deal.Status == models.StatusRemoved {
			return apperrors.Removed("deal")
		}
		if err := tx.Model(&deal).Update("status", input.Status).Error; err != nil {
			return apperrors.Database("failed to update deal", err)
		}
		deal.Status = input.Status
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.feed.Invalidate()

	statusOK(c, deal)
}
