package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gridvolt/gridvolt-api/internal/middleware"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/services"
)

type InventoryHandler struct {
	inventoryService *services.InventoryService
}

func NewInventoryHandler(inventoryService *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// @Summary List Inventory Items
// @Description Get a paginated list of battery units
// @Tags Inventory
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by serial"
// @Param status query string false "Filter by status"
// @Param model query string false "Filter by model"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /inventory/items [get]
func (h *InventoryHandler) Index(c *gin.Context) {
	query := &repository.InventoryQuery{ListQuery: bindListQuery(c)}
	query.Status = c.Query("status")
	query.Model = c.Query("model")

	items, total, err := h.inventoryService.ListItems(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"pagination": paginationFor(query.ListQuery, total),
	})
}

// @Summary Get Inventory Item
// @Description Get a battery unit by ID
// @Tags Inventory
// @Produce json
// @Param item_id path int true "Item ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /inventory/items/{item_id} [get]
func (h *InventoryHandler) Show(c *gin.Context) {
	item, err := h.inventoryService.FindItemByID(c.Request.Context(), pathID(c, "item_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// @Summary Register Inventory Item
// @Description Register a battery unit pending inspection
// @Tags Inventory
// @Accept json
// @Produce json
// @Param request body services.CreateItemRequest true "Item Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400,409 {object} map[string]string
// @Security BearerAuth
// @Router /inventory/items [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	var req services.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item, "message": "Item registered"})
}

// @Summary Pass Inspection
// @Description Mark a unit as having passed inspection, making it available for orders
// @Tags Inventory
// @Produce json
// @Param item_id path int true "Item ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404,422 {object} map[string]string
// @Security BearerAuth
// @Router /inventory/items/{item_id}/pass_inspection [post]
func (h *InventoryHandler) PassInspection(c *gin.Context) {
	item, err := h.inventoryService.PassInspection(c.Request.Context(), middleware.GetUserID(c), pathID(c, "item_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "message": "Item available"})
}

// @Summary Mark Delivered
// @Description Mark an in-transit unit as delivered
// @Tags Inventory
// @Produce json
// @Param item_id path int true "Item ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404,422 {object} map[string]string
// @Security BearerAuth
// @Router /inventory/items/{item_id}/mark_delivered [post]
func (h *InventoryHandler) MarkDelivered(c *gin.Context) {
	item, err := h.inventoryService.MarkDelivered(c.Request.Context(), middleware.GetUserID(c), pathID(c, "item_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "message": "Item delivered"})
}

// @Summary List Provisions
// @Description Get a paginated list of procurement provisions
// @Tags Inventory
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param oem_account_id query int false "Filter by OEM account"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /provisions [get]
func (h *InventoryHandler) IndexProvisions(c *gin.Context) {
	query := &repository.ProvisionQuery{ListQuery: bindListQuery(c)}
	query.Status = c.Query("status")
	if oemID := c.Query("oem_account_id"); oemID != "" {
		id, _ := strconv.ParseUint(oemID, 10, 32)
		query.OEMAccountID = uint(id)
	}

	provisions, total, err := h.inventoryService.ListProvisions(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provisions": provisions,
		"pagination": paginationFor(query.ListQuery, total),
	})
}

// @Summary Get Provision
// @Description Get a provision with its OEM account and units
// @Tags Inventory
// @Produce json
// @Param provision_id path int true "Provision ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /provisions/{provision_id} [get]
func (h *InventoryHandler) ShowProvision(c *gin.Context) {
	provision, err := h.inventoryService.FindProvisionByID(c.Request.Context(), pathID(c, "provision_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provision": provision})
}

// @Summary Create Provision
// @Description Group inventory units into a procurement request against an OEM account
// @Tags Inventory
// @Accept json
// @Produce json
// @Param request body services.CreateProvisionRequest true "Provision Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400,404,422 {object} map[string]string
// @Security BearerAuth
// @Router /provisions [post]
func (h *InventoryHandler) CreateProvision(c *gin.Context) {
	var req services.CreateProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provision, err := h.inventoryService.CreateProvision(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"provision": provision, "message": "Provision created"})
}

// @Summary Close Provision
// @Description Close an open provision without converting it into an order
// @Tags Inventory
// @Produce json
// @Param provision_id path int true "Provision ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404,422 {object} map[string]string
// @Security BearerAuth
// @Router /provisions/{provision_id}/close [post]
func (h *InventoryHandler) CloseProvision(c *gin.Context) {
	provision, err := h.inventoryService.CloseProvision(c.Request.Context(), middleware.GetUserID(c), pathID(c, "provision_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provision": provision, "message": "Provision closed"})
}
