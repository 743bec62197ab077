package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gridvolt/gridvolt-api/internal/middleware"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/services"
)

type DealHandler struct {
	dealService   *services.DealService
	exportService *services.ExportService
	reportService *services.ReportService
}

func NewDealHandler(dealService *services.DealService, exportService *services.ExportService, reportService *services.ReportService) *DealHandler {
	return &DealHandler{dealService: dealService, exportService: exportService, reportService: reportService}
}

// @Summary List Deals
// @Description Get a paginated list of deals
// @Tags Deals
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by GUID or dealer name"
// @Param status query string false "Filter by status (comma separated)"
// @Param lead_id query int false "Filter by lead"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /deals [get]
func (h *DealHandler) Index(c *gin.Context) {
	query := &repository.DealQuery{ListQuery: bindListQuery(c)}
	query.Status = c.Query("status")
	if leadID := c.Query("lead_id"); leadID != "" {
		id, _ := strconv.ParseUint(leadID, 10, 32)
		query.LeadID = uint(id)
	}

	deals, total, err := h.dealService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for _, deal := range deals {
		responses = append(responses, deal.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"deals":      responses,
		"pagination": paginationFor(query.ListQuery, total),
	})
}

// @Summary Get Deal Stats
// @Description Get deal count statistics (Total, Pending, Approved, Rejected)
// @Tags Deals
// @Produce json
// @Success 200 {object} repository.DealStats
// @Security BearerAuth
// @Router /deals/stats [get]
func (h *DealHandler) GetStats(c *gin.Context) {
	stats, err := h.dealService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Deal
// @Description Get a deal by ID with its line items
// @Tags Deals
// @Produce json
// @Param deal_id path int true "Deal ID"
// @Success 200 {object} models.DealResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /deals/{deal_id} [get]
func (h *DealHandler) Show(c *gin.Context) {
	deal, err := h.dealService.FindByID(c.Request.Context(), pathID(c, "deal_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deal": deal.ToResponse()})
}

// @Summary Create Deal
// @Description Raise a deal against a qualified lead. Opens the level 1 approval.
// @Tags Deals
// @Accept json
// @Produce json
// @Param request body services.CreateDealRequest true "Deal Data"
// @Success 201 {object} models.DealResponse
// @Failure 400,409,422 {object} map[string]string
// @Security BearerAuth
// @Router /deals [post]
func (h *DealHandler) Create(c *gin.Context) {
	var req services.CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.dealService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"deal": deal.ToResponse(), "message": "Deal created"})
}

// @Summary Update Deal
// @Description Edit a deal still waiting on level 1 approval
// @Tags Deals
// @Accept json
// @Produce json
// @Param deal_id path int true "Deal ID"
// @Param request body services.UpdateDealRequest true "Deal Data"
// @Success 200 {object} models.DealResponse
// @Failure 400,404,422 {object} map[string]string
// @Security BearerAuth
// @Router /deals/{deal_id} [patch]
func (h *DealHandler) Update(c *gin.Context) {
	var req services.UpdateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.dealService.Update(c.Request.Context(), middleware.GetUserID(c), pathID(c, "deal_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deal": deal.ToResponse(), "message": "Deal updated"})
}

type ApproveDealRequest struct {
	Comments string `json:"comments"`
}

// @Summary Approve Deal
// @Description Approve the deal at the given level. The caller's role must match the pipeline stage.
// @Tags Deals
// @Accept json
// @Produce json
// @Param deal_id path int true "Deal ID"
// @Param level path int true "Approval level (1-3)"
// @Param request body ApproveDealRequest false "Comments"
// @Success 200 {object} models.DealResponse
// @Failure 400,403,409,422 {object} map[string]string
// @Security BearerAuth
// @Router /deals/{deal_id}/approve/{level} [post]
func (h *DealHandler) Approve(c *gin.Context) {
	level, _ := strconv.Atoi(c.Param("level"))
	var req ApproveDealRequest
	c.ShouldBindJSON(&req)

	deal, err := h.dealService.Approve(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		pathID(c, "deal_id"), level, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deal": deal.ToResponse(), "message": "Deal approved"})
}

type RejectDealRequest struct {
	Reason string `json:"reason"`
}

// @Summary Reject Deal
// @Description Reject the deal at its pending level. A reason is required and the rejection is terminal.
// @Tags Deals
// @Accept json
// @Produce json
// @Param deal_id path int true "Deal ID"
// @Param request body RejectDealRequest true "Reason"
// @Success 200 {object} models.DealResponse
// @Failure 400,403,422 {object} map[string]string
// @Security BearerAuth
// @Router /deals/{deal_id}/reject [post]
func (h *DealHandler) Reject(c *gin.Context) {
	var req RejectDealRequest
	c.ShouldBindJSON(&req)

	deal, err := h.dealService.Reject(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		pathID(c, "deal_id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deal": deal.ToResponse(), "message": "Deal rejected"})
}

// @Summary Get Deal Approvals
// @Description Get the approval trail of a deal, ordered by level
// @Tags Deals
// @Produce json
// @Param deal_id path int true "Deal ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /deals/{deal_id}/approvals [get]
func (h *DealHandler) Approvals(c *gin.Context) {
	approvals, err := h.dealService.Approvals(c.Request.Context(), pathID(c, "deal_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvals": approvals})
}

// @Summary Export Deals
// @Description Download deals as an XLSX workbook
// @Tags Deals
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /deals/export [get]
func (h *DealHandler) Export(c *gin.Context) {
	query := &repository.DealQuery{ListQuery: repository.NewListQuery()}
	query.PerPage = 10000
	query.Status = c.Query("status")

	data, filename, err := h.exportService.ExportDealsXLSX(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// @Summary Deal Summary PDF
// @Description Download a PDF summary of the deal with line items and approval trail
// @Tags Deals
// @Produce application/pdf
// @Param deal_id path int true "Deal ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /deals/{deal_id}/summary_pdf [get]
func (h *DealHandler) SummaryPDF(c *gin.Context) {
	data, filename, err := h.reportService.DealSummaryPDF(c.Request.Context(), pathID(c, "deal_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}
