package handlers

import (
	"github.com/gridvolt/gridvolt-api/internal/jobs"
	"github.com/gridvolt/gridvolt-api/internal/services"
	"github.com/gridvolt/gridvolt-api/internal/storage"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Lead         *LeadHandler
	Account      *AccountHandler
	Deal         *DealHandler
	Order        *OrderHandler
	Inventory    *InventoryHandler
	Dispute      *DisputeHandler
	SLA          *SLAHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
	Job          *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, storage *storage.LocalStorage, worker *jobs.Worker) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Auth:         NewAuthHandler(svcs.Auth),
		User:         NewUserHandler(svcs.User),
		Lead:         NewLeadHandler(svcs.Lead),
		Account:      NewAccountHandler(svcs.Account),
		Deal:         NewDealHandler(svcs.Deal, svcs.Export, svcs.Report),
		Order:        NewOrderHandler(svcs.Order, svcs.Report, storage),
		Inventory:    NewInventoryHandler(svcs.Inventory),
		Dispute:      NewDisputeHandler(svcs.Dispute),
		SLA:          NewSLAHandler(svcs.SLA, svcs.Export),
		Notification: NewNotificationHandler(svcs.Notification),
		Audit:        NewAuditHandler(svcs.Audit, svcs.Export),
		Job:          NewJobHandler(svcs.SLA, worker),
	}
}
