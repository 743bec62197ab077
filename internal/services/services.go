package services

import (
	"github.com/gridvolt/gridvolt-api/internal/config"
	"github.com/gridvolt/gridvolt-api/internal/jobs"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/storage"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	User         *UserService
	Lead         *LeadService
	Account      *AccountService
	Deal         *DealService
	Order        *OrderService
	Inventory    *InventoryService
	Dispute      *DisputeService
	SLA          *SLAService
	Notification *NotificationService
	Audit        *AuditService
	Email        *EmailService
	Webhook      *WebhookService
	Export       *ExportService
	Report       *ReportService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, txManager repository.TxManager, worker *jobs.Worker, store *storage.LocalStorage, cfg *config.Config) *Services {
	auditSvc := NewAuditService(repos.Audit)
	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	emailSvc := NewEmailService(cfg)
	webhookSvc := NewWebhookService(cfg.WebhookURL)

	creditGuard := NewCreditGuard(repos.Order)
	disputeGuard := NewDisputeGuard(repos.Dispute)

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:         NewUserService(repos, auditSvc, emailSvc, worker),
		Lead:         NewLeadService(repos, auditSvc),
		Account:      NewAccountService(repos, creditGuard, auditSvc),
		Deal:         NewDealService(repos, txManager, creditGuard, auditSvc, notificationSvc, webhookSvc, worker),
		Order:        NewOrderService(repos, txManager, disputeGuard, auditSvc, notificationSvc, webhookSvc, store, worker),
		Inventory:    NewInventoryService(repos, auditSvc),
		Dispute:      NewDisputeService(repos, auditSvc),
		SLA:          NewSLAService(repos, txManager, auditSvc, notificationSvc, emailSvc, webhookSvc),
		Notification: notificationSvc,
		Audit:        auditSvc,
		Email:        emailSvc,
		Webhook:      webhookSvc,
		Export:       NewExportService(repos),
		Report:       NewReportService(repos),
	}
}
