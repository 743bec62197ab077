package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridvolt/gridvolt-api/internal/config"
	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/pkg/logger"
)

func TestEmailService_RenderTemplates(t *testing.T) {
	logger.Setup("test")
	service := NewEmailService(&config.Config{AppURL: "https://app.gridvolt.example"})

	body, err := service.renderTemplate("account_created.html", struct {
		Name   string
		Role   string
		AppURL string
	}{Name: "Asha Verma", Role: models.RoleSalesHead, AppURL: "https://app.gridvolt.example"})
	require.NoError(t, err)
	assert.Contains(t, body, "Asha Verma")
	assert.Contains(t, body, "https://app.gridvolt.example")

	deadline := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	body, err = service.renderTemplate("sla_breached.html", struct {
		Name         string
		Step         string
		EntityKind   string
		EntityID     uint
		Deadline     string
		AssigneeRole string
		Overdue      string
		AppURL       string
	}{
		Name:       "Bina Rao",
		Step:       models.SLAStepPIUpload,
		EntityKind: "order",
		EntityID:   12,
		Deadline:   deadline.Format("2006-01-02 15:04 MST"),
		Overdue:    "26h0m0s",
	})
	require.NoError(t, err)
	assert.Contains(t, body, models.SLAStepPIUpload)
	assert.Contains(t, body, "Bina Rao")
}

func TestEmailService_SendSkippedWithoutAPIKey(t *testing.T) {
	logger.Setup("test")
	service := NewEmailService(&config.Config{FromEmail: "noreply@gridvolt.app"})

	user := &models.User{FullName: "Asha Verma", Email: "asha@gridvolt.app"}
	sla := &models.SLA{
		Entity:       models.OrderRef(3),
		Step:         models.SLAStepPIUpload,
		Deadline:     time.Now().Add(-2 * time.Hour),
		AssigneeRole: models.RoleSales,
	}

	// Without a key the send is a logged no-op, not an error
	assert.NoError(t, service.SendSLABreached(context.Background(), user, sla, time.Now()))
	assert.NoError(t, service.SendAccountCreated(context.Background(), user))
}
