// Package emailshare emails per-client returns reports: an HTML
// summary with an XLSX workbook attached, recorded in email_shares.
package emailshare

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/uptimeops/warehance-returns-backend/internal/export"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	"github.com/uptimeops/warehance-returns-backend/internal/metrics"
)

// Mailer sends a composed message. Satisfied by the SendGrid client;
// tests substitute their own.
type Mailer interface {
	SendWithContext(ctx context.Context, message *mail.SGMailV3) (*rest.Response, error)
}

// Request describes one share: which client's returns, over what
// range, to whom.
type Request struct {
	ClientID       int64
	RecipientEmail string
	DateRangeStart time.Time
	DateRangeEnd   time.Time
}

// Service composes and sends return report emails.
type Service struct {
	storage     *storage.Storage
	mailer      Mailer
	logger      *slog.Logger
	fromAddress string
	fromName    string
}

// NewService creates the email share service. apiKey may be empty in
// development; sending then fails with a clear error instead of
// panicking at startup.
func NewService(store *storage.Storage, apiKey, fromAddress, fromName string, logger *slog.Logger) *Service {
	var mailer Mailer
	if apiKey != "" {
		mailer = sendgrid.NewSendClient(apiKey)
	}
	return &Service{
		storage:     store,
		mailer:      mailer,
		logger:      logger,
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

// NewServiceWithMailer wires an explicit mailer, for tests.
func NewServiceWithMailer(store *storage.Storage, mailer Mailer, fromAddress, fromName string, logger *slog.Logger) *Service {
	return &Service{
		storage:     store,
		mailer:      mailer,
		logger:      logger,
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

// Share builds the report for the request, records the share and sends
// it. The share row is created first so failed deliveries remain
// visible in history.
func (s *Service) Share(ctx context.Context, req Request) (*storage.EmailShare, error) {
	filters := storage.ReturnFilters{
		ClientID: &req.ClientID,
		From:     &req.DateRangeStart,
		To:       &req.DateRangeEnd,
	}
	rows, err := s.storage.ExportRows(filters)
	if err != nil {
		return nil, fmt.Errorf("collecting returns for share: %w", err)
	}

	returnIDs := uniqueReturnIDs(rows)
	subject := fmt.Sprintf("Returns Report: %s to %s",
		req.DateRangeStart.Format("Jan 2, 2006"), req.DateRangeEnd.Format("Jan 2, 2006"))

	share := &storage.EmailShare{
		ClientID:       req.ClientID,
		RecipientEmail: req.RecipientEmail,
		Subject:        subject,
		DateRangeStart: req.DateRangeStart,
		DateRangeEnd:   req.DateRangeEnd,
	}
	shareID, err := s.storage.CreateEmailShare(share, returnIDs)
	if err != nil {
		return nil, fmt.Errorf("recording email share: %w", err)
	}
	share.ID = shareID
	share.Status = storage.ShareStatusPending
	share.TotalReturns = len(returnIDs)

	if err := s.send(ctx, req, subject, rows, len(returnIDs)); err != nil {
		if markErr := s.storage.MarkEmailShareFailed(shareID); markErr != nil {
			s.logger.Error("marking share failed", "share_id", shareID, "error", markErr)
		}
		metrics.EmailSharesSent.WithLabelValues("failed").Inc()
		share.Status = storage.ShareStatusFailed
		return share, err
	}

	if err := s.storage.MarkEmailShareSent(shareID); err != nil {
		s.logger.Error("marking share sent", "share_id", shareID, "error", err)
	}
	metrics.EmailSharesSent.WithLabelValues("sent").Inc()
	share.Status = storage.ShareStatusSent

	s.logger.Info("email share sent",
		"share_id", shareID,
		"client_id", req.ClientID,
		"recipient", req.RecipientEmail,
		"returns", len(returnIDs),
	)
	return share, nil
}

func (s *Service) send(ctx context.Context, req Request, subject string, rows []storage.ExportRow, returnCount int) error {
	if s.mailer == nil {
		return fmt.Errorf("email sending disabled: no SendGrid API key configured")
	}

	var workbook bytes.Buffer
	if err := export.WriteXLSX(&workbook, rows); err != nil {
		return fmt.Errorf("building report attachment: %w", err)
	}

	from := mail.NewEmail(s.fromName, s.fromAddress)
	to := mail.NewEmail("", req.RecipientEmail)
	htmlBody := s.composeHTML(req, returnCount, len(rows))
	plainBody := fmt.Sprintf(
		"Returns report for %s to %s: %d returns (%d line items). See attached spreadsheet.",
		req.DateRangeStart.Format("2006-01-02"), req.DateRangeEnd.Format("2006-01-02"),
		returnCount, len(rows))

	message := mail.NewSingleEmail(from, subject, to, plainBody, htmlBody)

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(workbook.Bytes()))
	attachment.SetType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	attachment.SetFilename(fmt.Sprintf("returns_%s_%s.xlsx",
		req.DateRangeStart.Format("20060102"), req.DateRangeEnd.Format("20060102")))
	attachment.SetDisposition("attachment")
	message.AddAttachment(attachment)

	response, err := s.mailer.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned error status %d", response.StatusCode)
	}
	return nil
}

func (s *Service) composeHTML(req Request, returnCount, lineCount int) string {
	return fmt.Sprintf(`<html><body>
<h2>Returns Report</h2>
<p>Attached is the returns report covering <strong>%s</strong> through <strong>%s</strong>.</p>
<ul>
<li>Returns: %d</li>
<li>Line items: %d</li>
</ul>
<p>The attached spreadsheet has one row per returned item.</p>
</body></html>`,
		req.DateRangeStart.Format("Jan 2, 2006"), req.DateRangeEnd.Format("Jan 2, 2006"),
		returnCount, lineCount)
}

// uniqueReturnIDs collapses the per-item rows back to the distinct
// returns they came from, preserving order.
func uniqueReturnIDs(rows []storage.ExportRow) []int64 {
	seen := make(map[int64]bool, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if !seen[row.ReturnID] {
			seen[row.ReturnID] = true
			ids = append(ids, row.ReturnID)
		}
	}
	return ids
}
