package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridvolt/gridvolt-api/internal/middleware"
	"github.com/gridvolt/gridvolt-api/internal/services"
)

type DisputeHandler struct {
	disputeService *services.DisputeService
}

func NewDisputeHandler(disputeService *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService}
}

// @Summary Raise Dispute
// @Description Open a dispute on an order. Payments are blocked while any dispute is open.
// @Tags Disputes
// @Accept json
// @Produce json
// @Param request body services.RaiseDisputeRequest true "Dispute Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400,404 {object} map[string]string
// @Security BearerAuth
// @Router /disputes [post]
func (h *DisputeHandler) Raise(c *gin.Context) {
	var req services.RaiseDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dispute, err := h.disputeService.Raise(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dispute": dispute, "message": "Dispute raised"})
}

// @Summary Resolve Dispute
// @Description Resolve an open dispute
// @Tags Disputes
// @Produce json
// @Param dispute_id path int true "Dispute ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404,422 {object} map[string]string
// @Security BearerAuth
// @Router /disputes/{dispute_id}/resolve [post]
func (h *DisputeHandler) Resolve(c *gin.Context) {
	dispute, err := h.disputeService.Resolve(c.Request.Context(), middleware.GetUserID(c), pathID(c, "dispute_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispute": dispute, "message": "Dispute resolved"})
}

// @Summary List Order Disputes
// @Description Get all disputes raised against an order
// @Tags Disputes
// @Produce json
// @Param order_id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /orders/{order_id}/disputes [get]
func (h *DisputeHandler) ForOrder(c *gin.Context) {
	disputes, err := h.disputeService.ForOrder(c.Request.Context(), pathID(c, "order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}
