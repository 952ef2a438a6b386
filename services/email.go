package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"
	"tradie_legal_go/config"

	"github.com/resend/resend-go/v2"
)

// Email template names; each maps to templates/emails/<name>.html/.txt
const (
	EmailTemplateApplicationReceived = "application_received"
	EmailTemplateApplicationApproved = "application_approved"
	EmailTemplateApplicationRejected = "application_rejected"
	EmailTemplateIntakeInvite        = "intake_invite"
	EmailTemplateDashboardReady      = "dashboard_ready"
	EmailTemplateDocumentSent        = "document_sent"
)

// emailSubjects maps template names to their subject lines
var emailSubjects = map[string]string{
	EmailTemplateApplicationReceived: "We received your enquiry",
	EmailTemplateApplicationApproved: "Your application has been approved",
	EmailTemplateApplicationRejected: "An update on your application",
	EmailTemplateIntakeInvite:        "Next step: complete your case intake",
	EmailTemplateDashboardReady:      "Your case dashboard is ready",
	EmailTemplateDocumentSent:        "A document is ready on your case",
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// BuildTemplateEmail loads a named template and fills it with vars. If the
// template files are missing a plain-text fallback body is used so the
// send still goes out.
func BuildTemplateEmail(templateName, toEmail string, vars map[string]string) *Email {
	htmlBody, textBody, err := loadEmailTemplate(templateName, vars)
	if err != nil {
		log.Printf("Error loading %s email template: %v", templateName, err)
		textBody = fallbackBody(templateName, vars)
	}

	subject, ok := emailSubjects[templateName]
	if !ok {
		subject = "An update from TradieShield"
	}

	return &Email{
		To:       []string{toEmail},
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

func fallbackBody(templateName string, vars map[string]string) string {
	name := vars["Name"]
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s,\n\nThere is an update on your TradieShield account (%s). Log in to your dashboard for details.\n",
		name, strings.ReplaceAll(templateName, "_", " "))
}

// loadEmailTemplate loads an email template from templates/emails
func loadEmailTemplate(templateName string, data interface{}) (html string, text string, err error) {
	basePath := "templates/emails"

	loadAndExec := func(ext string) (string, error) {
		path := filepath.Join(basePath, templateName+ext)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %v", path, err)
		}

		tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %v", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to execute template %s: %v", path, err)
		}
		return buf.String(), nil
	}

	htmlContent, err := loadAndExec(".html")
	if err != nil {
		return "", "", err
	}

	textContent, err := loadAndExec(".txt")
	if err != nil {
		return "", "", err
	}

	return htmlContent, textContent, nil
}

// SendEmail sends an email using the Resend API. Failures are for the
// caller to log; a failed email never reverses the workflow transition
// that triggered it.
func SendEmail(cfg *config.Config, email *Email) error {
	// In test mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	fromAddress := fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom)

	params := &resend.SendEmailRequest{
		From:    fromAddress,
		To:      email.To,
		Subject: email.Subject,
	}

	// Prefer HTML if available
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}

	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email has no body")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Email sent to %v (id: %s)", email.To, sent.Id)
	return nil
}

func logEmailToConsole(email *Email) {
	log.Printf("---- EMAIL (test mode, not sent) ----")
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	if email.TextBody != "" {
		log.Printf("Body:\n%s", email.TextBody)
	}
	log.Printf("-------------------------------------")
}
