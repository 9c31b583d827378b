package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESSender implements email sending via AWS SES
type SESSender struct {
	client   *ses.Client
	from     string
	fromName string
}

// NewSESSender creates a new AWS SES email sender. Without explicit keys the default
// credential chain is used.
func NewSESSender(cfg ProviderConfig) (*SESSender, error) {
	awsOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretKey != "" {
		awsOpts = append(awsOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if cfg.SESEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SESEndpoint)
		}
	})

	return &SESSender{
		client:   client,
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
	}, nil
}

// Send sends an email via AWS SES
func (p *SESSender) Send(ctx context.Context, message *Message) error {
	source := p.from
	if p.fromName != "" {
		source = fmt.Sprintf("%s <%s>", p.fromName, p.from)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: []string{message.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(message.Subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(message.Body),
				},
			},
		},
	}

	if _, err := p.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("SES send failed: %w", err)
	}
	return nil
}

// GetName returns the provider name
func (p *SESSender) GetName() string {
	return "AWS SES"
}
