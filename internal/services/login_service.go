package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/riskgate/internal/auth"
	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/BradenHooton/riskgate/internal/observability"
	"github.com/BradenHooton/riskgate/internal/risk"
	pkgauth "github.com/BradenHooton/riskgate/pkg/auth"
	pkglogger "github.com/BradenHooton/riskgate/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultNotifyTimeout = 5 * time.Second

// dummyHash is compared against when the user does not exist, so unknown
// users cost the same bcrypt work as a wrong password
var dummyHash = sync.OnceValue(func() string {
	h, _ := pkgauth.HashPassword("riskgate-unknown-user")
	return h
})

// HistoryStore is the login history as seen by the login flow
type HistoryStore interface {
	risk.HistoryReader
	Record(ctx context.Context, attempt *models.LoginAttempt) error
}

// CredentialStore looks up users by login name
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Assessor scores an attempt
type Assessor interface {
	Assess(ctx context.Context, identity string, lctx models.LoginContext, now time.Time) models.RiskAssessment
}

// DecisionPolicy turns a score into a decision
type DecisionPolicy interface {
	Decide(score int) models.Decision
}

// TokenIssuer mints the tokens handed out with allow and challenge decisions
type TokenIssuer interface {
	GenerateAccessToken(identity string) (string, error)
	GenerateChallengeToken(identity string) (string, error)
}

// LoginService runs the login flow: credential check, risk assessment,
// decision, history write, response. The read-assess-record sequence for one
// identity is serialized so concurrent attempts cannot double-count velocity.
type LoginService struct {
	users         CredentialStore
	history       HistoryStore
	engine        Assessor
	policy        DecisionPolicy
	tokens        TokenIssuer
	notifier      Notifier
	timing        *auth.TimingDelay
	locks         *auth.KeyedMutex
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
	now           func() time.Time
	newID         func() string
	notifyTimeout time.Duration
}

// NewLoginService creates a login flow. tokens may be nil, in which case no
// tokens are issued.
func NewLoginService(
	users CredentialStore,
	history HistoryStore,
	engine Assessor,
	policy DecisionPolicy,
	tokens TokenIssuer,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *LoginService {
	return &LoginService{
		users:         users,
		history:       history,
		engine:        engine,
		policy:        policy,
		tokens:        tokens,
		locks:         auth.NewKeyedMutex(),
		logger:        logger,
		auditLogger:   auditLogger,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// WithNotifier sets the block-alert notifier
func (s *LoginService) WithNotifier(n Notifier) *LoginService {
	s.notifier = n
	return s
}

// WithTimingDelay pads invalid-credential responses
func (s *LoginService) WithTimingDelay(td *auth.TimingDelay) *LoginService {
	s.timing = td
	return s
}

// WithClock overrides the evaluation clock
func (s *LoginService) WithClock(now func() time.Time) *LoginService {
	s.now = now
	return s
}

// Login verifies the credential and, when it matches, evaluates the attempt
func (s *LoginService) Login(ctx context.Context, identity, secret string, lctx models.LoginContext) (*models.LoginResult, error) {
	start := time.Now()
	identity = normalizeIdentity(identity)

	ctx, span := observability.Tracer().Start(ctx, "login")
	defer span.End()

	if identity == "" || secret == "" {
		return nil, s.deny(ctx, start, identity, lctx, "missing_credentials")
	}

	user, err := s.users.GetByUsername(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = pkgauth.ComparePassword(dummyHash(), secret)
			return nil, s.deny(ctx, start, identity, lctx, "invalid_credentials")
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		span.SetStatus(codes.Error, "credential lookup failed")
		return nil, fmt.Errorf("%w: credential lookup: %v", models.ErrInternalServer, err)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, secret); err != nil {
		if !errors.Is(err, pkgauth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unusable", slog.Any("error", err))
		}
		return nil, s.deny(ctx, start, identity, lctx, "invalid_credentials")
	}

	return s.evaluate(ctx, user.Username, user.Email, lctx)
}

// EvaluateLogin runs the flow after an external credential check.
// A failed check short-circuits: nothing is scored or recorded.
func (s *LoginService) EvaluateLogin(ctx context.Context, identity string, credentialOK bool, lctx models.LoginContext) (*models.LoginResult, error) {
	identity = normalizeIdentity(identity)
	if !credentialOK || identity == "" {
		return nil, s.deny(ctx, time.Now(), identity, lctx, "invalid_credentials")
	}
	return s.evaluate(ctx, identity, "", lctx)
}

func (s *LoginService) deny(ctx context.Context, start time.Time, identity string, lctx models.LoginContext, reason string) error {
	observability.LoginDecisions.WithLabelValues(string(models.DecisionDeny)).Inc()
	s.logger.Info("login failed: invalid credentials")
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventLoginDenied,
		Identity:      identity,
		IPAddress:     deref(lctx.IPAddress),
		Success:       false,
		FailureReason: reason,
	})
	s.timing.WaitFrom(ctx, start)
	return models.ErrInvalidCredential
}

func (s *LoginService) evaluate(ctx context.Context, identity, email string, lctx models.LoginContext) (*models.LoginResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "login.evaluate")
	defer span.End()

	attempt, assessment, err := s.assessAndRecord(ctx, identity, lctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history write failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("login.decision", string(attempt.Decision)),
		attribute.Int("login.risk_score", attempt.RiskScore),
	)

	result := &models.LoginResult{
		Decision:  attempt.Decision,
		RiskScore: attempt.RiskScore,
		Reasons:   assessment.Reasons,
		AttemptID: attempt.ID,
	}

	switch attempt.Decision {
	case models.DecisionAllow:
		if s.tokens != nil {
			if result.AccessToken, err = s.tokens.GenerateAccessToken(identity); err != nil {
				s.logger.Error("failed to generate access token", slog.Any("error", err))
				return nil, models.ErrInternalServer
			}
		}
	case models.DecisionChallenge:
		if s.tokens != nil {
			if result.ChallengeToken, err = s.tokens.GenerateChallengeToken(identity); err != nil {
				s.logger.Error("failed to generate challenge token", slog.Any("error", err))
				return nil, models.ErrInternalServer
			}
		}
	case models.DecisionBlock:
		s.notifyBlock(ctx, attempt, assessment, email)
	}

	observability.LoginDecisions.WithLabelValues(string(attempt.Decision)).Inc()
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: decisionEvent(attempt.Decision),
		Identity:  identity,
		IPAddress: deref(lctx.IPAddress),
		RiskScore: &attempt.RiskScore,
		Reasons:   assessment.Reasons,
		AttemptID: attempt.ID,
		Success:   attempt.Decision == models.DecisionAllow,
	})

	return result, nil
}

// assessAndRecord holds the identity's lock across the history read and write
func (s *LoginService) assessAndRecord(ctx context.Context, identity string, lctx models.LoginContext) (*models.LoginAttempt, models.RiskAssessment, error) {
	unlock, err := s.locks.Lock(ctx, identity)
	if err != nil {
		return nil, models.RiskAssessment{}, fmt.Errorf("%w: %v", models.ErrHistoryUnavailable, err)
	}
	defer unlock()

	now := s.now()
	assessment := s.engine.Assess(ctx, identity, lctx, now)
	decision := s.policy.Decide(assessment.Score)

	attempt := &models.LoginAttempt{
		ID:                s.newID(),
		Identity:          identity,
		AttemptTime:       now,
		IPAddress:         lctx.IPAddress,
		DeviceFingerprint: lctx.DeviceFingerprint,
		RiskScore:         assessment.Score,
		Decision:          decision,
	}

	if err := s.history.Record(ctx, attempt); err != nil {
		observability.HistoryErrors.WithLabelValues("record").Inc()
		s.logger.Error("failed to record login attempt",
			slog.String("attempt_id", attempt.ID),
			slog.Any("error", err))
		return nil, assessment, fmt.Errorf("%w: %v", models.ErrHistoryUnavailable, err)
	}

	return attempt, assessment, nil
}

func (s *LoginService) notifyBlock(ctx context.Context, attempt *models.LoginAttempt, assessment models.RiskAssessment, email string) {
	if s.notifier == nil {
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	err := s.notifier.NotifyBlock(nctx, BlockAlert{
		Identity:  attempt.Identity,
		Email:     email,
		IPAddress: deref(attempt.IPAddress),
		RiskScore: attempt.RiskScore,
		Reasons:   assessment.Reasons,
		AttemptID: attempt.ID,
		At:        attempt.AttemptTime,
	})
	if err != nil {
		s.logger.Warn("block alert failed",
			slog.String("attempt_id", attempt.ID),
			slog.Any("error", err))
	}
}

func decisionEvent(d models.Decision) string {
	switch d {
	case models.DecisionAllow:
		return pkglogger.EventLoginAllow
	case models.DecisionChallenge:
		return pkglogger.EventLoginChallenge
	default:
		return pkglogger.EventLoginBlock
	}
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
