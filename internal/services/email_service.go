package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/gridvolt/gridvolt-api/internal/config"
	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

// EmailService sends transactional email through Resend. All sends happen
// post-commit from the worker, never inside a request transaction.
type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

// SendAccountCreated welcomes a newly provisioned user
func (s *EmailService) SendAccountCreated(ctx context.Context, user *models.User) error {
	data := struct {
		Name   string
		Role   string
		AppURL string
	}{
		Name:   user.FullName,
		Role:   user.Role,
		AppURL: s.config.AppURL,
	}

	body, err := s.renderTemplate("account_created.html", data)
	if err != nil {
		return err
	}

	return s.send(user.Email, "Welcome to GridVolt", body)
}

// SendSLABreached escalates a missed deadline to the escalation role's inbox
func (s *EmailService) SendSLABreached(ctx context.Context, user *models.User, sla *models.SLA, now time.Time) error {
	data := struct {
		Name         string
		Step         string
		EntityKind   string
		EntityID     uint
		Deadline     string
		AssigneeRole string
		Overdue      string
		AppURL       string
	}{
		Name:         user.FullName,
		Step:         sla.Step,
		EntityKind:   string(sla.Entity.Kind),
		EntityID:     sla.Entity.ID,
		Deadline:     sla.Deadline.Format("2006-01-02 15:04 MST"),
		AssigneeRole: sla.AssigneeRole,
		Overdue:      now.Sub(sla.Deadline).Round(time.Minute).String(),
		AppURL:       s.config.AppURL,
	}

	body, err := s.renderTemplate("sla_breached.html", data)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("SLA breached: %s on %s #%d", sla.Step, sla.Entity.Kind, sla.Entity.ID)
	return s.send(user.Email, subject, body)
}

func (s *EmailService) send(to, subject, html string) error {
	if s.config.ResendAPIKey == "" {
		logger.Warn(fmt.Sprintf("RESEND_API_KEY not set, skipping email to %s", to))
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	if _, err := s.resendClient.Emails.Send(params); err != nil {
		logger.Error(fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return err
	}

	logger.Info(fmt.Sprintf("[Email Sent] To: %s | Subject: %s", to, subject))
	return nil
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
