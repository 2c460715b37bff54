package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/riskgate/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// BlockAlert describes a login that the policy blocked
type BlockAlert struct {
	Identity  string
	Email     string
	IPAddress string
	RiskScore int
	Reasons   []string
	AttemptID string
	At        time.Time
}

// Notifier is told about blocked logins. Delivery is best effort: the caller
// logs a failure and carries on.
type Notifier interface {
	NotifyBlock(ctx context.Context, alert BlockAlert) error
}

// LogNotifier writes block alerts to the application log
type LogNotifier struct {
	logger *slog.Logger
	mask   bool
}

func NewLogNotifier(logger *slog.Logger, mask bool) *LogNotifier {
	return &LogNotifier{logger: logger, mask: mask}
}

func (n *LogNotifier) NotifyBlock(ctx context.Context, alert BlockAlert) error {
	identity := alert.Identity
	if n.mask {
		identity = logger.MaskIdentity(identity)
	}
	n.logger.WarnContext(ctx, "login blocked",
		slog.String("identity", identity),
		slog.Int("risk_score", alert.RiskScore),
		slog.Any("reasons", alert.Reasons),
		slog.String("attempt_id", alert.AttemptID))
	return nil
}

// SESClient is the part of the SES API the notifier uses
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier emails the account owner when a login is blocked.
// Identities without an email address fall back to the log notifier.
type SESNotifier struct {
	client      SESClient
	fromAddress string
	fallback    Notifier
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS configuration for region
func NewSESNotifier(ctx context.Context, region, fromAddress string, fallback Notifier, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, fallback, logger), nil
}

func NewSESNotifierWithClient(client SESClient, fromAddress string, fallback Notifier, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client:      client,
		fromAddress: fromAddress,
		fallback:    fallback,
		logger:      logger,
	}
}

func (n *SESNotifier) NotifyBlock(ctx context.Context, alert BlockAlert) error {
	if alert.Email == "" {
		if n.fallback != nil {
			return n.fallback.NotifyBlock(ctx, alert)
		}
		return nil
	}

	reasons := "none"
	if len(alert.Reasons) > 0 {
		reasons = strings.Join(alert.Reasons, ", ")
	}
	ip := alert.IPAddress
	if ip == "" {
		ip = "unknown"
	}

	textBody := fmt.Sprintf(`A sign-in to your account was blocked.

Time: %s
Source IP: %s
Risk score: %d
Signals: %s
Reference: %s

If this was you, wait a few minutes and try again from a device you have used before.
If it was not you, change your password.
`, alert.At.UTC().Format(time.RFC1123), ip, alert.RiskScore, reasons, alert.AttemptID)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{alert.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("Suspicious sign-in blocked"),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send block alert: %w", err)
	}

	n.logger.InfoContext(ctx, "block alert sent",
		slog.String("attempt_id", alert.AttemptID),
		slog.String("email", logger.MaskIdentity(alert.Email)))
	return nil
}
