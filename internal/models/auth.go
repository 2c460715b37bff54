package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types
const (
	TokenTypeAccess    = "access"
	TokenTypeChallenge = "challenge"
)

type TokenClaims struct {
	Type     string `json:"type"`
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}
