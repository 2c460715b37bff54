package services

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// MockCredentialStore implements CredentialStore for testing
type MockCredentialStore struct {
	GetByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
}

func (m *MockCredentialStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

// MockHistoryStore implements HistoryStore for testing
type MockHistoryStore struct {
	RecordFunc       func(ctx context.Context, attempt *models.LoginAttempt) error
	RecentSinceFunc  func(ctx context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error)
	KnownDevicesFunc func(ctx context.Context, identity string) (map[string]struct{}, error)
	CountFunc        func(ctx context.Context, identity string) (int, error)

	mu       sync.Mutex
	recorded []models.LoginAttempt
}

func (m *MockHistoryStore) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordFunc != nil {
		if err := m.RecordFunc(ctx, attempt); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.recorded = append(m.recorded, *attempt)
	m.mu.Unlock()
	return nil
}

func (m *MockHistoryStore) RecentSince(ctx context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error) {
	if m.RecentSinceFunc != nil {
		return m.RecentSinceFunc(ctx, identity, since)
	}
	return slices.Values([]models.LoginAttempt(nil)), nil
}

func (m *MockHistoryStore) KnownDevices(ctx context.Context, identity string) (map[string]struct{}, error) {
	if m.KnownDevicesFunc != nil {
		return m.KnownDevicesFunc(ctx, identity)
	}
	return map[string]struct{}{}, nil
}

func (m *MockHistoryStore) Count(ctx context.Context, identity string) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, identity)
	}
	return 0, nil
}

func (m *MockHistoryStore) Recorded() []models.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.recorded)
}

// MockAssessor implements Assessor for testing
type MockAssessor struct {
	AssessFunc func(ctx context.Context, identity string, lctx models.LoginContext, now time.Time) models.RiskAssessment
	calls      int
}

func (m *MockAssessor) Assess(ctx context.Context, identity string, lctx models.LoginContext, now time.Time) models.RiskAssessment {
	m.calls++
	if m.AssessFunc != nil {
		return m.AssessFunc(ctx, identity, lctx, now)
	}
	return models.RiskAssessment{Reasons: []string{}}
}

// MockTokenIssuer implements TokenIssuer and ChallengeTokens for testing
type MockTokenIssuer struct {
	GenerateAccessTokenFunc    func(identity string) (string, error)
	GenerateChallengeTokenFunc func(identity string) (string, error)
	ValidateTokenFunc          func(tokenString, expectedType string) (*models.TokenClaims, error)
}

func (m *MockTokenIssuer) GenerateAccessToken(identity string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(identity)
	}
	return "access-" + identity, nil
}

func (m *MockTokenIssuer) GenerateChallengeToken(identity string) (string, error) {
	if m.GenerateChallengeTokenFunc != nil {
		return m.GenerateChallengeTokenFunc(identity)
	}
	return "challenge-" + identity, nil
}

func (m *MockTokenIssuer) ValidateToken(tokenString, expectedType string) (*models.TokenClaims, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString, expectedType)
	}
	return nil, models.ErrUnauthorized
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	NotifyBlockFunc func(ctx context.Context, alert BlockAlert) error
	alerts          []BlockAlert
}

func (m *MockNotifier) NotifyBlock(ctx context.Context, alert BlockAlert) error {
	m.alerts = append(m.alerts, alert)
	if m.NotifyBlockFunc != nil {
		return m.NotifyBlockFunc(ctx, alert)
	}
	return nil
}

// MockCodeVerifier implements auth.CodeVerifier for testing
type MockCodeVerifier struct {
	VerifyFunc func(ctx context.Context, code string) (bool, error)
}

func (m *MockCodeVerifier) Verify(ctx context.Context, code string) (bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, code)
	}
	return code == "123456", nil
}

// MockSESClient implements SESClient for testing
type MockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	inputs        []*ses.SendEmailInput
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{}, nil
}
