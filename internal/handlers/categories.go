package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/dealdrop/backend/internal/feed"
)

type CategoryHandler struct {
	feed *feed.Service
}

func NewCategoryHandler(f *feed.Service) *CategoryHandler {
	return &CategoryHandler{feed: f}
}

// List returns every category in display order.
func (h *CategoryHandler) List(c *gin.Context) {
	cats, err := h.feed.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	statusOK(c, gin.H{"categories": cats})
}
