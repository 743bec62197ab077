package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
)

// ReportService renders deal and order summaries as PDF documents
type ReportService struct {
	repos *repository.Repositories
}

// NewReportService creates a new report service
func NewReportService(repos *repository.Repositories) *ReportService {
	return &ReportService{repos: repos}
}

// DealSummaryPDF renders one deal with its line items, totals and approval
// trail as a PDF.
func (s *ReportService) DealSummaryPDF(ctx context.Context, dealID uint) ([]byte, string, error) {
	deal, err := s.repos.Deal.FindByIDWithDetails(ctx, dealID)
	if err != nil {
		return nil, "", wrapFindErr(err, "deal %d not found", dealID)
	}
	approvals, err := s.repos.Approval.FindByEntity(ctx, models.DealRef(deal.ID))
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Deal Summary %s", deal.GUID))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 8, "Dealer:")
	pdf.Cell(80, 8, deal.Lead.DealerName)
	pdf.Ln(6)
	pdf.Cell(60, 8, "Status:")
	pdf.Cell(80, 8, deal.Status)
	pdf.Ln(6)
	pdf.Cell(60, 8, "Payment Terms:")
	pdf.Cell(80, 8, deal.PaymentTerms)
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Line Items")
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.Cell(70, 7, "Description")
	pdf.Cell(30, 7, "SKU")
	pdf.Cell(20, 7, "Qty")
	pdf.Cell(30, 7, "Unit Price")
	pdf.Cell(30, 7, "Line Total")
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 9)
	for _, item := range deal.Items {
		pdf.Cell(70, 6, item.Description)
		pdf.Cell(30, 6, item.SKU)
		pdf.Cell(20, 6, fmt.Sprintf("%d", item.Quantity))
		pdf.Cell(30, 6, item.UnitPrice.StringFixed(2))
		pdf.Cell(30, 6, item.LineTotal().StringFixed(2))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 6, "Line Total:")
	pdf.Cell(40, 6, deal.LineTotal.StringFixed(2))
	pdf.Ln(6)
	pdf.Cell(60, 6, "Tax:")
	pdf.Cell(40, 6, deal.TaxAmount.StringFixed(2))
	pdf.Ln(6)
	pdf.Cell(60, 6, "Transport (incl. tax):")
	pdf.Cell(40, 6, deal.Transport.Add(deal.TransportTax).StringFixed(2))
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(60, 8, "Total Payable:")
	pdf.Cell(40, 8, deal.TotalPayable.StringFixed(2))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Approval Trail")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	for _, approval := range approvals {
		decided := "pending"
		if approval.DecidedAt != nil {
			decided = approval.DecidedAt.Format("2006-01-02 15:04")
		}
		line := fmt.Sprintf("Level %d (%s): %s at %s",
			approval.Level, approval.RequiredRole, approval.Status, decided)
		if approval.RejectionReason != "" {
			line += " - " + approval.RejectionReason
		}
		pdf.Cell(180, 6, line)
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render deal pdf: %w", err)
	}

	filename := fmt.Sprintf("deal_%s.pdf", deal.GUID)
	return buf.Bytes(), filename, nil
}

// OrderStatementPDF renders one order with its payment trail as a PDF
func (s *ReportService) OrderStatementPDF(ctx context.Context, orderID uint) ([]byte, string, error) {
	order, err := s.repos.Order.FindByIDWithDetails(ctx, orderID)
	if err != nil {
		return nil, "", wrapFindErr(err, "order %d not found", orderID)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Order Statement %s", order.GUID))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 8, "OEM:")
	pdf.Cell(80, 8, order.OEMAccount.Name)
	pdf.Ln(6)
	pdf.Cell(60, 8, "Status:")
	pdf.Cell(80, 8, order.Status)
	pdf.Ln(6)
	pdf.Cell(60, 8, "Payment Status:")
	pdf.Cell(80, 8, order.PaymentStatus)
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Units")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	for _, item := range order.Items {
		pdf.Cell(60, 6, item.Serial)
		pdf.Cell(60, 6, item.Model)
		pdf.Cell(40, 6, item.Price.StringFixed(2))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Payments")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	for _, payment := range order.Payments {
		pdf.Cell(50, 6, payment.CreatedAt.Format("2006-01-02"))
		pdf.Cell(50, 6, payment.Amount.StringFixed(2))
		pdf.Cell(80, 6, payment.Reference)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(60, 8, "Total:")
	pdf.Cell(40, 8, order.TotalAmount.StringFixed(2))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Paid:")
	pdf.Cell(40, 8, order.PaidAmount.StringFixed(2))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Outstanding:")
	pdf.Cell(40, 8, order.TotalAmount.Sub(order.PaidAmount).StringFixed(2))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render order pdf: %w", err)
	}

	filename := fmt.Sprintf("order_%s_%s.pdf", order.GUID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
