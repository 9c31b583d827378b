package email

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ProviderConfig
		wantName string
		wantErr  bool
	}{
		{name: "default is log", cfg: ProviderConfig{}, wantName: "Log"},
		{name: "sendgrid", cfg: ProviderConfig{Provider: "sendgrid", SendGridAPIKey: "SG.key"}, wantName: "SendGrid"},
		{name: "sendgrid without key", cfg: ProviderConfig{Provider: "sendgrid"}, wantErr: true},
		{name: "ses", cfg: ProviderConfig{Provider: "ses", AWSRegion: "us-east-1", AWSAccessKeyID: "AKID", AWSSecretKey: "secret"}, wantName: "AWS SES"},
		{name: "ses without region", cfg: ProviderConfig{Provider: "ses"}, wantErr: true},
		{name: "smtp", cfg: ProviderConfig{Provider: "smtp", SMTPHost: "mail.example.com", SMTPPort: 587}, wantName: "SMTP"},
		{name: "smtp without host", cfg: ProviderConfig{Provider: "smtp"}, wantErr: true},
		{name: "unknown", cfg: ProviderConfig{Provider: "fax"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSender(tt.cfg, logrus.New())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, sender.GetName())
		})
	}
}

func TestLogSender(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sender := NewLogSender("noreply@example.com", logger)

	err := sender.Send(context.Background(), &Message{To: "jane@example.com", Subject: "Reset", Body: "token: abc"})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "token: abc", entry.Message)
	assert.Equal(t, "jane@example.com", entry.Data["to"])
}

func TestSMTPSenderHonoursCancelledContext(t *testing.T) {
	sender := NewSMTPSender(ProviderConfig{SMTPHost: "127.0.0.1", SMTPPort: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.Send(ctx, &Message{To: "jane@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
