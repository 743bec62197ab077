package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gridvolt/gridvolt-api/internal/repository"
)

// ExportService renders audit trails and pipeline listings as downloadable
// CSV and XLSX files.
type ExportService struct {
	repos *repository.Repositories
}

// NewExportService creates a new export service
func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos}
}

// ExportAuditCSV renders the filtered audit trail as CSV
func (s *ExportService) ExportAuditCSV(ctx context.Context, query *repository.AuditQuery) ([]byte, string, error) {
	logs, _, err := s.repos.Audit.List(ctx, query)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Audit Trail", time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"Timestamp", "Actor", "Action", "Entity", "Entity ID", "Details"})

	for _, log := range logs {
		actor := fmt.Sprintf("%d", log.ActorID)
		if log.Actor.ID != 0 {
			actor = log.Actor.Email
		}
		_ = writer.Write([]string{
			log.CreatedAt.Format(time.RFC3339),
			actor,
			log.Action,
			log.Entity,
			fmt.Sprintf("%d", log.EntityID),
			log.Details,
		})
	}
	writer.Flush()

	filename := fmt.Sprintf("audit_trail_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportAuditXLSX renders the filtered audit trail as a spreadsheet
func (s *ExportService) ExportAuditXLSX(ctx context.Context, query *repository.AuditQuery) ([]byte, string, error) {
	logs, _, err := s.repos.Audit.List(ctx, query)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Audit Trail"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	headers := []string{"Timestamp", "Actor", "Action", "Entity", "Entity ID", "Details"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, log := range logs {
		actor := fmt.Sprintf("%d", log.ActorID)
		if log.Actor.ID != 0 {
			actor = log.Actor.Email
		}
		values := []any{
			log.CreatedAt.Format(time.RFC3339),
			actor,
			log.Action,
			log.Entity,
			log.EntityID,
			log.Details,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "F", "F", 50)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("audit_trail_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportDealsXLSX renders the deal pipeline as a spreadsheet
func (s *ExportService) ExportDealsXLSX(ctx context.Context, query *repository.DealQuery) ([]byte, string, error) {
	deals, _, err := s.repos.Deal.List(ctx, query)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Deals"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	headers := []string{"GUID", "Dealer", "Status", "Line Total", "Tax", "Transport", "Total Payable", "Created"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, deal := range deals {
		values := []any{
			deal.GUID,
			deal.Lead.DealerName,
			deal.Status,
			deal.LineTotal.InexactFloat64(),
			deal.TaxAmount.Add(deal.TransportTax).InexactFloat64(),
			deal.Transport.InexactFloat64(),
			deal.TotalPayable.InexactFloat64(),
			deal.CreatedAt.Format("2006-01-02"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("deals_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportSLAsCSV renders SLA trackers as CSV, typically filtered to breached
func (s *ExportService) ExportSLAsCSV(ctx context.Context, query *repository.SLAQuery) ([]byte, string, error) {
	slas, _, err := s.repos.SLA.List(ctx, query)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"SLA Trackers", time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"Entity", "Entity ID", "Step", "Status", "Deadline", "Assignee", "Escalated To"})

	for _, sla := range slas {
		_ = writer.Write([]string{
			string(sla.Entity.Kind),
			fmt.Sprintf("%d", sla.Entity.ID),
			sla.Step,
			sla.Status,
			sla.Deadline.Format(time.RFC3339),
			sla.AssigneeRole,
			sla.EscalatedTo,
		})
	}
	writer.Flush()

	filename := fmt.Sprintf("sla_trackers_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
