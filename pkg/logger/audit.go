package logger

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Audit event types
const (
	EventLoginAllow     = "login_allow"
	EventLoginChallenge = "login_challenge"
	EventLoginBlock     = "login_block"
	EventLoginDenied    = "login_denied"
	EventChallengeAllow = "challenge_allow"
	EventChallengeDeny  = "challenge_deny"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Identity      string
	IPAddress     string
	RiskScore     *int
	Reasons       []string
	AttemptID     string
	Success       bool
	FailureReason string
}

// AuditLogger writes one structured "audit" record per decision
type AuditLogger struct {
	logger *slog.Logger
	mask   bool
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger. With mask set, identities are
// written through MaskIdentity.
func NewAuditLogger(logger *slog.Logger, mask bool) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		mask:   mask,
		now:    time.Now,
	}
}

// Log writes the event at INFO when it succeeded and WARN otherwise
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if al == nil {
		return
	}

	identity := event.Identity
	if al.mask {
		identity = MaskIdentity(identity)
	}

	attrs := []slog.Attr{
		slog.String("audit_type", auditType(event.EventType)),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("identity", identity),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.RiskScore != nil {
		attrs = append(attrs, slog.Int("risk_score", *event.RiskScore))
	}
	if len(event.Reasons) > 0 {
		attrs = append(attrs, slog.Any("reasons", event.Reasons))
	}
	if event.AttemptID != "" {
		attrs = append(attrs, slog.String("attempt_id", event.AttemptID))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

func auditType(eventType string) string {
	if strings.HasPrefix(eventType, "challenge_") {
		return "challenge"
	}
	return "login"
}
