package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// BanNotifier is told about every escalation ban that was persisted
type BanNotifier interface {
	NotifyBan(ctx context.Context, address string, bannedAt time.Time, duration time.Duration) error
}

// NopBanNotifier discards notifications
type NopBanNotifier struct{}

func (NopBanNotifier) NotifyBan(context.Context, string, time.Time, time.Duration) error {
	return nil
}

// sesSender is the subset of the SES client used here
type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESBanNotifier emails the operator through AWS SES
type SESBanNotifier struct {
	client      sesSender
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESBanNotifier loads the default AWS credential chain for region
func NewSESBanNotifier(region, fromAddress, toAddress string, logger *slog.Logger) (*SESBanNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESBanNotifier(ses.NewFromConfig(cfg), fromAddress, toAddress, logger), nil
}

func newSESBanNotifier(client sesSender, fromAddress, toAddress string, logger *slog.Logger) *SESBanNotifier {
	return &SESBanNotifier{
		client:      client,
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}
}

func (n *SESBanNotifier) NotifyBan(ctx context.Context, address string, bannedAt time.Time, duration time.Duration) error {
	until := bannedAt.Add(duration).UTC()

	textBody := fmt.Sprintf(`Admin login ban issued

Address: %s
Banned at: %s
Ban expires: %s

The address reached the failed admin login threshold. No action is required;
the ban lifts on its own when it expires.
`, address, bannedAt.UTC().Format(time.RFC3339), until.Format(time.RFC3339))

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("Admin login banned for %s", address)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send ban notification via SES",
			slog.String("ip_address", address),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("ban notification sent",
		slog.String("ip_address", address),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
