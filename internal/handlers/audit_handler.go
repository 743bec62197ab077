package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/services"
)

type AuditHandler struct {
	auditService  *services.AuditService
	exportService *services.ExportService
}

func NewAuditHandler(auditService *services.AuditService, exportService *services.ExportService) *AuditHandler {
	return &AuditHandler{auditService: auditService, exportService: exportService}
}

func auditQueryFrom(c *gin.Context) *repository.AuditQuery {
	query := &repository.AuditQuery{ListQuery: bindListQuery(c)}
	if actorID := c.Query("actor_id"); actorID != "" {
		id, _ := strconv.ParseUint(actorID, 10, 32)
		query.ActorID = uint(id)
	}
	query.Action = c.Query("action")
	query.Entity = c.Query("entity")
	if entityID := c.Query("entity_id"); entityID != "" {
		id, _ := strconv.ParseUint(entityID, 10, 32)
		query.EntityID = uint(id)
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			query.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			end := t.Add(24 * time.Hour)
			query.To = &end
		}
	}
	return query
}

// @Summary List Audit Entries
// @Description Get a paginated list of audit log entries, newest first
// @Tags Audits
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param actor_id query int false "Filter by actor"
// @Param action query string false "Filter by action (CREATE, APPROVE, ...)"
// @Param entity query string false "Filter by entity kind"
// @Param entity_id query int false "Filter by entity ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query := auditQueryFrom(c)

	entries, total, err := h.auditService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audits":     entries,
		"pagination": paginationFor(query.ListQuery, total),
	})
}

// @Summary Audit Trail
// @Description Get the full audit trail of one entity in chronological order
// @Tags Audits
// @Produce json
// @Param entity path string true "Entity kind (deal, order, ...)"
// @Param entity_id path int true "Entity ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audits/{entity}/{entity_id} [get]
func (h *AuditHandler) Trail(c *gin.Context) {
	entries, err := h.auditService.Trail(c.Request.Context(), c.Param("entity"), pathID(c, "entity_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": entries})
}

// @Summary Export Audit Log
// @Description Download the audit log as CSV or XLSX
// @Tags Audits
// @Produce application/octet-stream
// @Param format query string false "Export format (csv, xlsx)" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /audits/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	query := auditQueryFrom(c)
	query.PerPage = 10000

	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)
	if c.DefaultQuery("format", "csv") == "xlsx" {
		data, filename, err = h.exportService.ExportAuditXLSX(c.Request.Context(), query)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	} else {
		data, filename, err = h.exportService.ExportAuditCSV(c.Request.Context(), query)
		contentType = "text/csv"
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}
