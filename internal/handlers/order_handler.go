package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gridvolt/gridvolt-api/internal/middleware"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/services"
	"github.com/gridvolt/gridvolt-api/internal/storage"
)

type OrderHandler struct {
	orderService  *services.OrderService
	reportService *services.ReportService
	storage       *storage.LocalStorage
}

func NewOrderHandler(orderService *services.OrderService, reportService *services.ReportService, storage *storage.LocalStorage) *OrderHandler {
	return &OrderHandler{orderService: orderService, reportService: reportService, storage: storage}
}

// @Summary List Orders
// @Description Get a paginated list of orders
// @Tags Orders
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by GUID"
// @Param status query string false "Filter by order status"
// @Param payment_status query string false "Filter by payment status"
// @Param oem_account_id query int false "Filter by OEM account"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /orders [get]
func (h *OrderHandler) Index(c *gin.Context) {
	query := &repository.OrderQuery{ListQuery: bindListQuery(c)}
	query.Status = c.Query("status")
	query.PaymentStatus = c.Query("payment_status")
	if oemID := c.Query("oem_account_id"); oemID != "" {
		id, _ := strconv.ParseUint(oemID, 10, 32)
		query.OEMAccountID = uint(id)
	}

	orders, total, err := h.orderService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for _, order := range orders {
		responses = append(responses, order.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":     responses,
		"pagination": paginationFor(query.ListQuery, total),
	})
}

// @Summary Get Order Stats
// @Description Get order counts by pipeline stage
// @Tags Orders
// @Produce json
// @Success 200 {object} repository.OrderStats
// @Security BearerAuth
// @Router /orders/stats [get]
func (h *OrderHandler) GetStats(c *gin.Context) {
	stats, err := h.orderService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Order
// @Description Get an order by ID with items, documents, and payments
// @Tags Orders
// @Produce json
// @Param order_id path int true "Order ID"
// @Success 200 {object} models.OrderResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id} [get]
func (h *OrderHandler) Show(c *gin.Context) {
	order, err := h.orderService.FindByID(c.Request.Context(), pathID(c, "order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse()})
}

// @Summary Create Order
// @Description Convert an open provision into an order, reserving its inventory units
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body services.CreateOrderRequest true "Order Data"
// @Success 201 {object} models.OrderResponse
// @Failure 400,404,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.CreateFromProvision(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order.ToResponse(), "message": "Order created"})
}

// @Summary Upload Proforma Invoice
// @Description Upload a PI document. Starts the PI approval chain; re-uploads create a new version.
// @Tags Orders
// @Accept multipart/form-data
// @Produce json
// @Param order_id path int true "Order ID"
// @Param document formData file true "PI document (PDF or image)"
// @Success 200 {object} models.OrderResponse
// @Failure 400,404,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/upload_pi [post]
func (h *OrderHandler) UploadPI(c *gin.Context) {
	file, header, err := c.Request.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A document file is required"})
		return
	}
	defer file.Close()

	order, err := h.orderService.UploadPI(c.Request.Context(), middleware.GetUserID(c), pathID(c, "order_id"), file, header)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse(), "message": "Proforma invoice uploaded"})
}

type ApproveStageRequest struct {
	Comments string `json:"comments"`
}

// @Summary Approve Proforma Invoice
// @Description Approve the PI at the given level
// @Tags Orders
// @Accept json
// @Produce json
// @Param order_id path int true "Order ID"
// @Param level path int true "Approval level (1-2)"
// @Param request body ApproveStageRequest false "Comments"
// @Success 200 {object} models.OrderResponse
// @Failure 400,403,409,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/approve_pi/{level} [post]
func (h *OrderHandler) ApprovePI(c *gin.Context) {
	level, _ := strconv.Atoi(c.Param("level"))
	var req ApproveStageRequest
	c.ShouldBindJSON(&req)

	order, err := h.orderService.ApprovePI(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		pathID(c, "order_id"), level, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse(), "message": "Proforma invoice approved"})
}

type RejectStageRequest struct {
	Reason string `json:"reason"`
}

// @Summary Reject Proforma Invoice
// @Description Reject the pending PI. The order returns to awaiting upload for correction.
// @Tags Orders
// @Accept json
// @Produce json
// @Param order_id path int true "Order ID"
// @Param request body RejectStageRequest true "Reason"
// @Success 200 {object} models.OrderResponse
// @Failure 400,403,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/reject_pi [post]
func (h *OrderHandler) RejectPI(c *gin.Context) {
	var req RejectStageRequest
	c.ShouldBindJSON(&req)

	order, err := h.orderService.RejectPI(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		pathID(c, "order_id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse(), "message": "Proforma invoice rejected"})
}

// @Summary Upload Invoice
// @Description Upload the final invoice once the PI is approved
// @Tags Orders
// @Accept multipart/form-data
// @Produce json
// @Param order_id path int true "Order ID"
// @Param document formData file true "Invoice document (PDF or image)"
// @Success 200 {object} models.OrderResponse
// @Failure 400,404,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/upload_invoice [post]
func (h *OrderHandler) UploadInvoice(c *gin.Context) {
	file, header, err := c.Request.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A document file is required"})
		return
	}
	defer file.Close()

	order, err := h.orderService.UploadInvoice(c.Request.Context(), middleware.GetUserID(c), pathID(c, "order_id"), file, header)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse(), "message": "Invoice uploaded"})
}

// @Summary Approve Invoice
// @Description Approve the final invoice, opening the payment window
// @Tags Orders
// @Accept json
// @Produce json
// @Param order_id path int true "Order ID"
// @Param request body ApproveStageRequest false "Comments"
// @Success 200 {object} models.OrderResponse
// @Failure 403,409,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/approve_invoice [post]
func (h *OrderHandler) ApproveInvoice(c *gin.Context) {
	var req ApproveStageRequest
	c.ShouldBindJSON(&req)

	order, err := h.orderService.ApproveInvoice(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		pathID(c, "order_id"), req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse(), "message": "Invoice approved"})
}

// @Summary Reject Invoice
// @Description Reject the invoice. The order returns to awaiting invoice upload.
// @Tags Orders
// @Accept json
// @Produce json
// @Param order_id path int true "Order ID"
// @Param request body RejectStageRequest true "Reason"
// @Success 200 {object} models.OrderResponse
// @Failure 400,403,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/reject_invoice [post]
func (h *OrderHandler) RejectInvoice(c *gin.Context) {
	var req RejectStageRequest
	c.ShouldBindJSON(&req)

	order, err := h.orderService.RejectInvoice(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		pathID(c, "order_id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse(), "message": "Invoice rejected"})
}

// @Summary Record Payment
// @Description Record a payment against the order. Blocked while the order has open disputes.
// @Tags Orders
// @Accept json
// @Produce json
// @Param order_id path int true "Order ID"
// @Param request body services.RecordPaymentRequest true "Payment Data"
// @Success 200 {object} models.OrderResponse
// @Failure 400,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/payments [post]
func (h *OrderHandler) RecordPayment(c *gin.Context) {
	var req services.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.RecordPayment(c.Request.Context(), middleware.GetUserID(c), pathID(c, "order_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse(), "message": "Payment recorded"})
}

// @Summary List Order Payments
// @Description Get all payments recorded against an order
// @Tags Orders
// @Produce json
// @Param order_id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /orders/{order_id}/payments [get]
func (h *OrderHandler) Payments(c *gin.Context) {
	payments, err := h.orderService.Payments(c.Request.Context(), pathID(c, "order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// @Summary Upload Delivery Challan
// @Description Upload the delivery challan once payment is complete. Moves units to in transit.
// @Tags Orders
// @Accept multipart/form-data
// @Produce json
// @Param order_id path int true "Order ID"
// @Param document formData file true "Challan document (PDF or image)"
// @Success 200 {object} models.OrderResponse
// @Failure 400,403,422 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/upload_challan [post]
func (h *OrderHandler) UploadChallan(c *gin.Context) {
	file, header, err := c.Request.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A document file is required"})
		return
	}
	defer file.Close()

	order, err := h.orderService.UploadChallan(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		pathID(c, "order_id"), file, header)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order.ToResponse(), "message": "Challan uploaded, order dispatched"})
}

// @Summary List Order Documents
// @Description Get document versions for an order, newest first
// @Tags Orders
// @Produce json
// @Param order_id path int true "Order ID"
// @Param kind query string false "Filter by kind (pi, invoice, challan)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /orders/{order_id}/documents [get]
func (h *OrderHandler) Documents(c *gin.Context) {
	documents, err := h.orderService.Documents(c.Request.Context(), pathID(c, "order_id"), c.Query("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": documents})
}

// @Summary Download Order Document
// @Description Download a stored document version by ID
// @Tags Orders
// @Produce application/octet-stream
// @Param order_id path int true "Order ID"
// @Param document_id path int true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /orders/{order_id}/documents/{document_id}/download [get]
func (h *OrderHandler) DownloadDocument(c *gin.Context) {
	orderID := pathID(c, "order_id")
	documents, err := h.orderService.Documents(c.Request.Context(), orderID, "")
	if err != nil {
		respondError(c, err)
		return
	}

	documentID := pathID(c, "document_id")
	for _, doc := range documents {
		if doc.ID != documentID {
			continue
		}
		fullPath, err := h.storage.SafeFullPath(doc.URL)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document file not found"})
			return
		}
		c.File(fullPath)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
}

// @Summary Get Order Approvals
// @Description Get the PI and invoice approval trail of an order
// @Tags Orders
// @Produce json
// @Param order_id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /orders/{order_id}/approvals [get]
func (h *OrderHandler) Approvals(c *gin.Context) {
	approvals, err := h.orderService.Approvals(c.Request.Context(), pathID(c, "order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvals": approvals})
}

// @Summary Order Statement PDF
// @Description Download a PDF statement with units, payments, and outstanding balance
// @Tags Orders
// @Produce application/pdf
// @Param order_id path int true "Order ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /orders/{order_id}/statement_pdf [get]
func (h *OrderHandler) StatementPDF(c *gin.Context) {
	data, filename, err := h.reportService.OrderStatementPDF(c.Request.Context(), pathID(c, "order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}
