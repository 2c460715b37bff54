package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "riskgate"

// TokenManager issues and validates HS256 tokens.
// Access tokens are handed out on allow; challenge tokens bind a pending
// second-factor step to the identity that triggered it.
type TokenManager struct {
	secret          []byte
	accessExpiry    time.Duration
	challengeExpiry time.Duration
	now             func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, challengeExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:          []byte(secret),
		accessExpiry:    accessExpiry,
		challengeExpiry: challengeExpiry,
		now:             time.Now,
	}
}

// WithClock overrides the issue-time clock
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// GenerateAccessToken creates a short-lived access token for a verified identity
func (tm *TokenManager) GenerateAccessToken(identity string) (string, error) {
	return tm.sign(models.TokenTypeAccess, identity, tm.accessExpiry)
}

// GenerateChallengeToken creates a token that can be exchanged for an access
// token together with a valid second-factor code
func (tm *TokenManager) GenerateChallengeToken(identity string) (string, error) {
	return tm.sign(models.TokenTypeChallenge, identity, tm.challengeExpiry)
}

func (tm *TokenManager) sign(tokenType, identity string, ttl time.Duration) (string, error) {
	now := tm.now()
	claims := &models.TokenClaims{
		Type:     tokenType,
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// ValidateToken verifies signature, expiry and type; any failure is ErrUnauthorized
func (tm *TokenManager) ValidateToken(tokenString, expectedType string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return tm.secret, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != expectedType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", models.ErrUnauthorized, expectedType, claims.Type)
	}
	if claims.Identity == "" {
		return nil, fmt.Errorf("%w: token without identity", models.ErrUnauthorized)
	}

	return claims, nil
}
