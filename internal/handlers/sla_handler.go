package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gridvolt/gridvolt-api/internal/jobs"
	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/services"
)

type SLAHandler struct {
	slaService    *services.SLAService
	exportService *services.ExportService
}

func NewSLAHandler(slaService *services.SLAService, exportService *services.ExportService) *SLAHandler {
	return &SLAHandler{slaService: slaService, exportService: exportService}
}

// @Summary List SLA Trackers
// @Description Get a paginated list of SLA trackers
// @Tags SLAs
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status (active, completed, breached)"
// @Param step query string false "Filter by workflow step"
// @Param role query string false "Filter by assignee role"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /slas [get]
func (h *SLAHandler) Index(c *gin.Context) {
	query := &repository.SLAQuery{ListQuery: bindListQuery(c)}
	query.Status = c.Query("status")
	query.Step = c.Query("step")
	query.Role = c.Query("role")

	slas, total, err := h.slaService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slas":       slas,
		"pagination": paginationFor(query.ListQuery, total),
	})
}

// @Summary SLA Trackers For Entity
// @Description Get every SLA tracker opened for a deal or order
// @Tags SLAs
// @Produce json
// @Param entity_kind path string true "Entity kind (deal, order)"
// @Param entity_id path int true "Entity ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /slas/{entity_kind}/{entity_id} [get]
func (h *SLAHandler) ForEntity(c *gin.Context) {
	kind := models.EntityKind(c.Param("entity_kind"))
	if kind != models.EntityDeal && kind != models.EntityOrder {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Entity kind must be deal or order"})
		return
	}

	slas, err := h.slaService.ForEntity(c.Request.Context(), models.EntityRef{Kind: kind, ID: pathID(c, "entity_id")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slas": slas})
}

// @Summary Export SLA Trackers
// @Description Download SLA trackers as CSV
// @Tags SLAs
// @Produce text/csv
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /slas/export [get]
func (h *SLAHandler) Export(c *gin.Context) {
	query := &repository.SLAQuery{ListQuery: repository.NewListQuery()}
	query.PerPage = 10000
	query.Status = c.Query("status")

	data, filename, err := h.exportService.ExportSLAsCSV(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}

type JobHandler struct {
	slaService *services.SLAService
	worker     *jobs.Worker
}

func NewJobHandler(slaService *services.SLAService, worker *jobs.Worker) *JobHandler {
	return &JobHandler{slaService: slaService, worker: worker}
}

// @Summary Run SLA Sweep
// @Description Run the breach sweep immediately instead of waiting for the schedule
// @Tags Jobs
// @Produce json
// @Success 200 {object} services.SweepResult
// @Security BearerAuth
// @Router /jobs/sla_sweep [post]
func (h *JobHandler) RunSLASweep(c *gin.Context) {
	result, err := h.slaService.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Worker Stats
// @Description Get background worker queue statistics
// @Tags Jobs
// @Produce json
// @Success 200 {object} jobs.WorkerStats
// @Security BearerAuth
// @Router /jobs/stats [get]
func (h *JobHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.GetStats())
}
