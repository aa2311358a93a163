// internal/services/report_service.go
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/store"
)

type ReportService struct {
	apps       store.ApplicationStore
	ledger     store.TransactionLedger
	authorizer Authorizer
	uploader   ObjectUploader
}

type RevenueSummary struct {
	From         time.Time            `json:"from"`
	To           time.Time            `json:"to"`
	Revenue      []models.RevenueRow  `json:"revenue"`
	Applications []models.StatusCount `json:"applications"`
}

type ExportResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func NewReportService(apps store.ApplicationStore, ledger store.TransactionLedger, authorizer Authorizer, uploader ObjectUploader) *ReportService {
	return &ReportService{
		apps:       apps,
		ledger:     ledger,
		authorizer: authorizer,
		uploader:   uploader,
	}
}

// RevenueSummary totals successful payments processed in [from, to) per currency.
func (s *ReportService) RevenueSummary(ctx context.Context, caller Identity, from, to time.Time) (*RevenueSummary, error) {
	if !s.authorizer.Can(caller, CapViewRevenue) {
		return nil, NewAuthorizationError("revenue reports require the admin role")
	}
	if !from.Before(to) {
		return nil, NewValidationError("from must be before to", nil)
	}

	revenue, err := s.ledger.RevenueByCurrency(ctx, from, to)
	if err != nil {
		return nil, storageError("aggregate revenue", err)
	}

	counts, err := s.apps.CountByStatus(ctx)
	if err != nil {
		return nil, storageError("count applications", err)
	}

	return &RevenueSummary{
		From:         from,
		To:           to,
		Revenue:      revenue,
		Applications: counts,
	}, nil
}

func (s *ReportService) ExportRevenue(ctx context.Context, caller Identity, from, to time.Time) (*ExportResult, error) {
	summary, err := s.RevenueSummary(ctx, caller, from, to)
	if err != nil {
		return nil, err
	}

	body, err := renderRevenueCSV(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to render revenue report: %w", err)
	}

	if s.uploader == nil {
		return nil, NewUpstreamError("storage not configured", nil)
	}

	key := fmt.Sprintf("reports/revenue-%s-%s.csv", from.UTC().Format("20060102"), to.UTC().Format("20060102"))
	url, err := s.uploader.PutObject(ctx, key, "text/csv", body)
	if err != nil {
		return nil, storageError("upload revenue report", err)
	}

	logrus.WithFields(logrus.Fields{
		"key":         key,
		"exported_by": caller.Email,
	}).Info("Revenue report exported")

	return &ExportResult{Key: key, URL: url}, nil
}

func renderRevenueCSV(summary *RevenueSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"section", "key", "count", "total_minor_units"},
	}
	for _, row := range summary.Revenue {
		records = append(records, []string{
			"revenue", row.Currency, strconv.FormatInt(row.Count, 10), strconv.FormatInt(row.Total, 10),
		})
	}
	for _, row := range summary.Applications {
		records = append(records, []string{
			"applications", string(row.Status), strconv.FormatInt(row.Count, 10), "",
		})
	}

	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
