package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// CodeVerifier checks a submitted second-factor code
type CodeVerifier interface {
	Verify(ctx context.Context, code string) (bool, error)
}

// StaticCodeVerifier accepts a single fixed code
type StaticCodeVerifier struct {
	code []byte
}

// NewStaticCodeVerifier rejects an empty code
func NewStaticCodeVerifier(code string) (*StaticCodeVerifier, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: static challenge code is empty", models.ErrInvalidConfig)
	}
	return &StaticCodeVerifier{code: []byte(code)}, nil
}

func (v *StaticCodeVerifier) Verify(_ context.Context, code string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), v.code) == 1, nil
}

// TOTPVerifier validates RFC 6238 codes against one shared secret.
// Codes from one step either side of now are accepted to absorb clock drift.
type TOTPVerifier struct {
	secret string
	opts   totp.ValidateOpts
	now    func() time.Time
}

// NewTOTPVerifier takes a base32 secret as produced by Enroll
func NewTOTPVerifier(secret string) (*TOTPVerifier, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if secret == "" {
		return nil, fmt.Errorf("%w: TOTP secret is empty", models.ErrInvalidConfig)
	}

	v := &TOTPVerifier{
		secret: secret,
		opts: totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
		now: time.Now,
	}

	if _, err := totp.GenerateCodeCustom(secret, time.Now(), v.opts); err != nil {
		return nil, fmt.Errorf("%w: TOTP secret: %v", models.ErrInvalidConfig, err)
	}
	return v, nil
}

// WithClock overrides the validation clock
func (v *TOTPVerifier) WithClock(now func() time.Time) *TOTPVerifier {
	v.now = now
	return v
}

func (v *TOTPVerifier) Verify(_ context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != v.opts.Digits.Length() {
		return false, nil
	}

	valid, err := totp.ValidateCustom(code, v.secret, v.now(), v.opts)
	if err != nil {
		return false, fmt.Errorf("failed to validate TOTP: %w", err)
	}
	return valid, nil
}
