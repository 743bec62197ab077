package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridvolt/gridvolt-api/internal/middleware"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/services"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// @Summary List Accounts
// @Description Get a paginated list of dealer and OEM accounts
// @Tags Accounts
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by name or GSTIN"
// @Param kind query string false "Filter by kind (dealer, oem)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /accounts [get]
func (h *AccountHandler) Index(c *gin.Context) {
	query := &repository.AccountQuery{ListQuery: bindListQuery(c)}
	query.Kind = c.Query("kind")

	accounts, total, err := h.accountService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts":   accounts,
		"pagination": paginationFor(query.ListQuery, total),
	})
}

// @Summary Get Account
// @Description Get an account by ID
// @Tags Accounts
// @Produce json
// @Param account_id path int true "Account ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /accounts/{account_id} [get]
func (h *AccountHandler) Show(c *gin.Context) {
	account, err := h.accountService.FindByID(c.Request.Context(), pathID(c, "account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// @Summary Create Account
// @Description Register a new dealer or OEM account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body services.AccountRequest true "Account Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req services.AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": account, "message": "Account created"})
}

// @Summary Update Account
// @Description Update account details
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param request body services.AccountRequest true "Account Data"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404 {object} map[string]string
// @Security BearerAuth
// @Router /accounts/{account_id} [patch]
func (h *AccountHandler) Update(c *gin.Context) {
	var req services.AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountService.Update(c.Request.Context(), middleware.GetUserID(c), pathID(c, "account_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "message": "Account updated"})
}

// @Summary Get Credit Standing
// @Description Check whether the account is blocked by the credit guard and why
// @Tags Accounts
// @Produce json
// @Param account_id path int true "Account ID"
// @Success 200 {object} services.CreditStanding
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /accounts/{account_id}/credit_standing [get]
func (h *AccountHandler) CreditStanding(c *gin.Context) {
	standing, err := h.accountService.CreditStanding(c.Request.Context(), pathID(c, "account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, standing)
}
