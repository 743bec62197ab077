package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gridvolt/gridvolt-api/internal/middleware"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/services"
)

type LeadHandler struct {
	leadService *services.LeadService
}

func NewLeadHandler(leadService *services.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// @Summary List Leads
// @Description Get a paginated list of leads
// @Tags Leads
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by dealer name"
// @Param status query string false "Filter by status"
// @Param interest_level query string false "Filter by interest level"
// @Param region query string false "Filter by region"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /leads [get]
func (h *LeadHandler) Index(c *gin.Context) {
	query := &repository.LeadQuery{ListQuery: bindListQuery(c)}
	query.Status = c.Query("status")
	query.InterestLevel = c.Query("interest_level")
	query.Region = c.Query("region")
	if ownerID := c.Query("owner_id"); ownerID != "" {
		id, _ := strconv.ParseUint(ownerID, 10, 32)
		query.OwnerID = uint(id)
	}

	leads, total, err := h.leadService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leads":      leads,
		"pagination": paginationFor(query.ListQuery, total),
	})
}

// @Summary Get Lead
// @Description Get a lead by ID with its account, owner, and deals
// @Tags Leads
// @Produce json
// @Param lead_id path int true "Lead ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /leads/{lead_id} [get]
func (h *LeadHandler) Show(c *gin.Context) {
	lead, err := h.leadService.FindByID(c.Request.Context(), pathID(c, "lead_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// @Summary Create Lead
// @Description Capture a new lead owned by the acting user
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body services.CreateLeadRequest true "Lead Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400,404 {object} map[string]string
// @Security BearerAuth
// @Router /leads [post]
func (h *LeadHandler) Create(c *gin.Context) {
	var req services.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lead, err := h.leadService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lead": lead, "message": "Lead created"})
}

// @Summary Update Lead
// @Description Update lead fields, status, or interest level
// @Tags Leads
// @Accept json
// @Produce json
// @Param lead_id path int true "Lead ID"
// @Param request body services.UpdateLeadRequest true "Lead Data"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404 {object} map[string]string
// @Security BearerAuth
// @Router /leads/{lead_id} [patch]
func (h *LeadHandler) Update(c *gin.Context) {
	var req services.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lead, err := h.leadService.Update(c.Request.Context(), middleware.GetUserID(c), pathID(c, "lead_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead, "message": "Lead updated"})
}
