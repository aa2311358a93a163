// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/models"
)

// Notifier delivers applicant-facing messages. Delivery failures never affect the
// state change that triggered them.
type Notifier interface {
	ApplicationReceived(app *models.Application) error
	ApplicationReviewed(app *models.Application) error
	PaymentReceived(app *models.Application, tx *models.Transaction) error
}

type NotificationService struct {
	config    config.EmailConfig
	templates map[string]*template.Template
}

func NewNotificationService(cfg config.EmailConfig) *NotificationService {
	templates := make(map[string]*template.Template, len(emailTemplates))
	for name, body := range emailTemplates {
		templates[name] = template.Must(template.New(name).Parse(body))
	}

	return &NotificationService{
		config:    cfg,
		templates: templates,
	}
}

func (s *NotificationService) ApplicationReceived(app *models.Application) error {
	data := map[string]interface{}{
		"Name":          app.FullName,
		"ApplicationID": app.ID,
		"InsuranceType": app.InsuranceType,
		"Coverage":      formatMinorUnits(app.CoverageAmount),
	}
	return s.send(app.Email, "We received your application", "application_received", data)
}

func (s *NotificationService) ApplicationReviewed(app *models.Application) error {
	data := map[string]interface{}{
		"Name":          app.FullName,
		"ApplicationID": app.ID,
		"Approved":      app.Status == models.ApplicationStatusApproved,
		"Note":          app.ReviewNote,
	}

	subject := "Your application has been reviewed"
	return s.send(app.Email, subject, "application_reviewed", data)
}

func (s *NotificationService) PaymentReceived(app *models.Application, tx *models.Transaction) error {
	data := map[string]interface{}{
		"Name":          app.FullName,
		"ApplicationID": app.ID,
		"Amount":        formatMinorUnits(tx.Amount),
		"Currency":      tx.Currency,
		"TransactionID": tx.ID,
	}
	return s.send(tx.PayerEmail, "Payment received", "payment_received", data)
}

// Helper methods
func (s *NotificationService) send(to, subject, templateName string, data interface{}) error {
	var buf bytes.Buffer
	if err := s.templates[templateName].Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	if s.config.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":       to,
			"subject":  subject,
			"template": templateName,
		}).Debug("Email delivery skipped, SMTP not configured")
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	// Compose message
	from := s.config.FromEmail
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", from, to, subject, buf.String()))

	addr := fmt.Sprintf("%s:%s", s.config.SMTPHost, s.config.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.config.FromEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func formatMinorUnits(amount int64) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

var emailTemplates = map[string]string{
	"application_received": `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>We received your {{.InsuranceType}} insurance application ({{.ApplicationID}}) for a coverage of {{.Coverage}}.</p>
	<p>An agent will review it shortly.</p>
</body>
</html>`,
	"application_reviewed": `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	{{if .Approved}}
	<p>Your application {{.ApplicationID}} has been approved. You can now pay your first premium.</p>
	{{else}}
	<p>Unfortunately your application {{.ApplicationID}} was not approved.</p>
	{{end}}
	{{if .Note}}<p>Reviewer note: {{.Note}}</p>{{end}}
</body>
</html>`,
	"payment_received": `
<!DOCTYPE html>
<html>
<body>
	<h2>Thank you {{.Name}},</h2>
	<p>We received your payment of {{.Amount}} {{.Currency}} for application {{.ApplicationID}}.</p>
	<p>Reference: {{.TransactionID}}</p>
</body>
</html>`,
}
