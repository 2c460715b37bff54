package services

import (
	"context"
	"errors"
	"testing"

	"github.com/BradenHooton/riskgate/internal/models"
	pkglogger "github.com/BradenHooton/riskgate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChallengeService(verifier *MockCodeVerifier, tokens *MockTokenIssuer) *ChallengeService {
	var ct ChallengeTokens
	if tokens != nil {
		ct = tokens
	}
	return NewChallengeService(verifier, ct, testLogger(), pkglogger.NewAuditLogger(testLogger(), false))
}

func TestChallengeService_EvaluateChallenge(t *testing.T) {
	svc := newChallengeService(&MockCodeVerifier{}, nil)
	ctx := context.Background()

	d, err := svc.EvaluateChallenge(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAllow, d)

	d, err = svc.EvaluateChallenge(ctx, "000000")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionDeny, d)
}

func TestChallengeService_VerifierError(t *testing.T) {
	svc := newChallengeService(&MockCodeVerifier{
		VerifyFunc: func(ctx context.Context, code string) (bool, error) {
			return false, errors.New("otp backend down")
		},
	}, nil)

	d, err := svc.EvaluateChallenge(context.Background(), "123456")
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.Equal(t, models.DecisionDeny, d)
}

func TestChallengeService_CompleteWithoutToken(t *testing.T) {
	svc := newChallengeService(&MockCodeVerifier{}, &MockTokenIssuer{})
	ctx := context.Background()

	res, err := svc.Complete(ctx, "123456", "")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAllow, res.Decision)
	assert.Empty(t, res.AccessToken)

	_, err = svc.Complete(ctx, "999999", "")
	assert.ErrorIs(t, err, models.ErrInvalidChallenge)
}

func TestChallengeService_CompleteExchangesToken(t *testing.T) {
	tokens := &MockTokenIssuer{
		ValidateTokenFunc: func(tokenString, expectedType string) (*models.TokenClaims, error) {
			assert.Equal(t, models.TokenTypeChallenge, expectedType)
			if tokenString != "good" {
				return nil, models.ErrUnauthorized
			}
			return &models.TokenClaims{Type: models.TokenTypeChallenge, Identity: "alice"}, nil
		},
	}
	svc := newChallengeService(&MockCodeVerifier{}, tokens)
	ctx := context.Background()

	res, err := svc.Complete(ctx, "123456", "good")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Identity)
	assert.Equal(t, "access-alice", res.AccessToken)

	_, err = svc.Complete(ctx, "123456", "forged")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Complete(ctx, "000000", "good")
	assert.ErrorIs(t, err, models.ErrInvalidChallenge)
}

func TestChallengeService_TokenWithoutIssuer(t *testing.T) {
	svc := newChallengeService(&MockCodeVerifier{}, nil)

	_, err := svc.Complete(context.Background(), "123456", "anything")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
