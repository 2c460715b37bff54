package risk

import (
	"fmt"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
)

// Policy maps a capped score to a decision.
// Both bounds are closed: a score equal to a bound does not escalate.
type Policy struct {
	BlockAbove     int `env:"RISK_BLOCK_ABOVE" envDefault:"70"`
	ChallengeAbove int `env:"RISK_CHALLENGE_ABOVE" envDefault:"20"`
}

// DefaultPolicy returns the 20/70 thresholds
func DefaultPolicy() Policy {
	return Policy{BlockAbove: 70, ChallengeAbove: 20}
}

// Decide returns block above BlockAbove, challenge above ChallengeAbove, otherwise allow
func (p Policy) Decide(score int) models.Decision {
	switch {
	case score > p.BlockAbove:
		return models.DecisionBlock
	case score > p.ChallengeAbove:
		return models.DecisionChallenge
	default:
		return models.DecisionAllow
	}
}

// Validate checks that the thresholds are ordered and inside the score range
func (p Policy) Validate() error {
	if p.ChallengeAbove < 0 || p.BlockAbove > MaxScore {
		return fmt.Errorf("%w: policy thresholds must lie in [0, %d]", models.ErrInvalidConfig, MaxScore)
	}
	if p.ChallengeAbove >= p.BlockAbove {
		return fmt.Errorf("%w: challenge threshold %d must be below block threshold %d",
			models.ErrInvalidConfig, p.ChallengeAbove, p.BlockAbove)
	}
	return nil
}

// Config holds the signal parameters and the decision policy
type Config struct {
	VelocityWindow    time.Duration `env:"RISK_VELOCITY_WINDOW" envDefault:"5m"`
	VelocityThreshold int           `env:"RISK_VELOCITY_THRESHOLD" envDefault:"5"`
	VelocityPoints    int           `env:"RISK_VELOCITY_POINTS" envDefault:"40"`
	NewDevicePoints   int           `env:"RISK_NEW_DEVICE_POINTS" envDefault:"30"`
	Blocklist         []string      `env:"RISK_BLOCKLIST" envDefault:"1.2.3.4" envSeparator:","`
	BadIPPoints       int           `env:"RISK_BAD_IP_POINTS" envDefault:"80"`
	AnomalyPoints     int           `env:"RISK_ANOMALY_POINTS" envDefault:"35"`
	Policy            Policy
}

// DefaultConfig mirrors the envDefault values
func DefaultConfig() Config {
	return Config{
		VelocityWindow:    5 * time.Minute,
		VelocityThreshold: 5,
		VelocityPoints:    40,
		NewDevicePoints:   30,
		Blocklist:         []string{"1.2.3.4"},
		BadIPPoints:       80,
		AnomalyPoints:     35,
		Policy:            DefaultPolicy(),
	}
}

// Validate rejects negative contributions and a non-positive velocity window
func (c Config) Validate() error {
	if c.VelocityWindow <= 0 {
		return fmt.Errorf("%w: velocity window must be positive", models.ErrInvalidConfig)
	}
	if c.VelocityThreshold < 1 {
		return fmt.Errorf("%w: velocity threshold must be at least 1", models.ErrInvalidConfig)
	}
	for name, pts := range map[string]int{
		"velocity":   c.VelocityPoints,
		"new device": c.NewDevicePoints,
		"bad ip":     c.BadIPPoints,
		"anomaly":    c.AnomalyPoints,
	} {
		if pts < 0 {
			return fmt.Errorf("%w: %s points must not be negative", models.ErrInvalidConfig, name)
		}
	}
	return c.Policy.Validate()
}
