package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// Message is a plain text transactional email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers transactional email
type Sender interface {
	Send(ctx context.Context, message *Message) error
	GetName() string
}

// ProviderConfig holds the settings for every supported provider
type ProviderConfig struct {
	Provider       string
	SendGridAPIKey string
	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
	SESEndpoint    string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	FromEmail      string
	FromName       string
}

// NewSender returns the sender selected by cfg.Provider
func NewSender(cfg ProviderConfig, logger *logrus.Logger) (Sender, error) {
	switch cfg.Provider {
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid api key is required")
		}
		return NewSendGridSender(cfg), nil
	case "ses":
		if cfg.AWSRegion == "" {
			return nil, fmt.Errorf("ses region is required")
		}
		return NewSESSender(cfg)
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp host is required")
		}
		return NewSMTPSender(cfg), nil
	case "log", "":
		return NewLogSender(cfg.FromEmail, logger), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}
}

// SMTPSender implements email sending via SMTP
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

// NewSMTPSender creates a new SMTP email sender
func NewSMTPSender(cfg ProviderConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     fmt.Sprintf("%d", cfg.SMTPPort),
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
	}
}

// Send sends an email via SMTP
func (p *SMTPSender) Send(ctx context.Context, message *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := p.from
	if p.fromName != "" {
		from = fmt.Sprintf("%s <%s>", p.fromName, p.from)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", message.To))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", message.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(message.Body)

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	addr := net.JoinHostPort(p.host, p.port)
	if err := smtp.SendMail(addr, auth, p.from, []string{message.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// GetName returns the provider name
func (p *SMTPSender) GetName() string {
	return "SMTP"
}

// SendGridSender implements email sending via SendGrid
type SendGridSender struct {
	from     string
	fromName string
	client   *sendgrid.Client
}

// NewSendGridSender creates a new SendGrid email sender
func NewSendGridSender(cfg ProviderConfig) *SendGridSender {
	return &SendGridSender{
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
		client:   sendgrid.NewSendClient(cfg.SendGridAPIKey),
	}
}

// Send sends an email via SendGrid
func (p *SendGridSender) Send(ctx context.Context, message *Message) error {
	from := mail.NewEmail(p.fromName, p.from)
	to := mail.NewEmail("", message.To)
	m := mail.NewSingleEmail(from, message.Subject, to, message.Body, "")

	// Reset tokens must reach the user verbatim
	trackingSettings := mail.NewTrackingSettings()
	clickTracking := mail.NewClickTrackingSetting()
	clickTracking.SetEnable(false)
	clickTracking.SetEnableText(false)
	trackingSettings.SetClickTracking(clickTracking)
	m.SetTrackingSettings(trackingSettings)

	response, err := p.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid API error: %d", response.StatusCode)
	}
	return nil
}

// GetName returns the provider name
func (p *SendGridSender) GetName() string {
	return "SendGrid"
}

// LogSender writes messages to the log instead of delivering them. Used in development.
type LogSender struct {
	from   string
	logger *logrus.Logger
}

func NewLogSender(from string, logger *logrus.Logger) *LogSender {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogSender{from: from, logger: logger}
}

func (p *LogSender) Send(ctx context.Context, message *Message) error {
	p.logger.WithFields(logrus.Fields{
		"from":    p.from,
		"to":      message.To,
		"subject": message.Subject,
	}).Info(message.Body)
	return nil
}

func (p *LogSender) GetName() string {
	return "Log"
}
