package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/middleware"
	"github.com/evetools/indy/internal/services"
)

type ShoppingHandler struct {
	shopping *services.ShoppingService
}

func NewShoppingHandler(shopping *services.ShoppingService) *ShoppingHandler {
	return &ShoppingHandler{shopping: shopping}
}

// Price solves the project's shopping list against the latest snapshot.
func (h *ShoppingHandler) Price(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad project id"))
		return
	}
	var req struct {
		Strategy string  `json:"strategy"`
		Markets  []int64 `json:"markets"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	strategy, err := services.ValidStrategy(req.Strategy)
	if err != nil {
		RespondError(c, err)
		return
	}
	result, err := h.shopping.Price(c.Request.Context(), middleware.OwnerID(c), id, strategy, req.Markets)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}
