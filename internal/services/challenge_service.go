package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/riskgate/internal/auth"
	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/BradenHooton/riskgate/internal/observability"
	pkglogger "github.com/BradenHooton/riskgate/pkg/logger"
)

// ChallengeTokens validates challenge tokens and exchanges them for access tokens
type ChallengeTokens interface {
	ValidateToken(tokenString, expectedType string) (*models.TokenClaims, error)
	GenerateAccessToken(identity string) (string, error)
}

// ChallengeService verifies second-factor codes. It never reads or writes
// login history: a verified code does not change the recorded decision.
type ChallengeService struct {
	verifier    auth.CodeVerifier
	tokens      ChallengeTokens
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewChallengeService(verifier auth.CodeVerifier, tokens ChallengeTokens, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ChallengeService {
	return &ChallengeService{
		verifier:    verifier,
		tokens:      tokens,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// EvaluateChallenge returns allow for a valid code and deny otherwise
func (s *ChallengeService) EvaluateChallenge(ctx context.Context, code string) (models.Decision, error) {
	return s.verify(ctx, code, "")
}

func (s *ChallengeService) verify(ctx context.Context, code, identity string) (models.Decision, error) {
	ctx, span := observability.Tracer().Start(ctx, "challenge.verify")
	defer span.End()

	ok, err := s.verifier.Verify(ctx, code)
	if err != nil {
		s.logger.Error("challenge verifier failed", slog.Any("error", err))
		observability.ChallengeResults.WithLabelValues("error").Inc()
		return models.DecisionDeny, fmt.Errorf("%w: challenge verifier: %v", models.ErrInternalServer, err)
	}

	decision := models.DecisionDeny
	event := pkglogger.EventChallengeDeny
	if ok {
		decision = models.DecisionAllow
		event = pkglogger.EventChallengeAllow
	}

	observability.ChallengeResults.WithLabelValues(string(decision)).Inc()
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: event,
		Identity:  identity,
		Success:   ok,
	})
	return decision, nil
}

// Complete verifies the code and, when a challenge token is supplied,
// exchanges it for an access token. A wrong code is ErrInvalidChallenge; a
// bad or expired token is ErrUnauthorized.
func (s *ChallengeService) Complete(ctx context.Context, code, challengeToken string) (*models.ChallengeResult, error) {
	var identity string
	if challengeToken != "" {
		if s.tokens == nil {
			return nil, fmt.Errorf("%w: challenge tokens are not enabled", models.ErrUnauthorized)
		}
		claims, err := s.tokens.ValidateToken(challengeToken, models.TokenTypeChallenge)
		if err != nil {
			s.logger.Info("challenge token rejected", slog.Any("error", err))
			return nil, err
		}
		identity = claims.Identity
	}

	decision, err := s.verify(ctx, code, identity)
	if err != nil {
		return nil, err
	}
	if decision != models.DecisionAllow {
		return nil, models.ErrInvalidChallenge
	}

	result := &models.ChallengeResult{Decision: decision, Identity: identity}
	if identity != "" {
		if result.AccessToken, err = s.tokens.GenerateAccessToken(identity); err != nil {
			s.logger.Error("failed to generate access token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}
	return result, nil
}
