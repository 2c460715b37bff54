package models

import "time"

// Decision is the outcome of the decision policy for a login attempt
type Decision string

const (
	DecisionAllow     Decision = "allow"
	DecisionChallenge Decision = "challenge"
	DecisionBlock     Decision = "block"
	DecisionDeny      Decision = "deny"
)

// LoginAttempt is one completed, credential-valid login evaluation.
// Attempts are immutable once recorded.
type LoginAttempt struct {
	ID                string    `db:"id" json:"id"`
	Identity          string    `db:"identity" json:"identity"`
	AttemptTime       time.Time `db:"attempt_time" json:"attempt_time"`
	IPAddress         *string   `db:"ip_address" json:"ip_address,omitempty"`
	DeviceFingerprint *string   `db:"device_fingerprint" json:"device_fingerprint,omitempty"`
	RiskScore         int       `db:"risk_score" json:"risk_score"`
	Decision          Decision  `db:"decision" json:"decision"`
}

// LoginContext is the client-supplied session context for a single login request
type LoginContext struct {
	DeviceFingerprint *string
	IPAddress         *string
	Hour              *int // nil means the evaluation-time wall-clock hour
}

// SignalResult is the contribution of one fired risk signal
type SignalResult struct {
	Points int
	Reason string
}

// RiskAssessment is the combined output of all risk signals
type RiskAssessment struct {
	Score   int
	Reasons []string
}

// LoginResult is what the login flow hands back to the transport layer
type LoginResult struct {
	Decision       Decision
	RiskScore      int
	Reasons        []string
	AttemptID      string
	AccessToken    string
	ChallengeToken string
}

// ChallengeResult is the outcome of a second-factor verification
type ChallengeResult struct {
	Decision    Decision
	Identity    string // set when a challenge token was presented
	AccessToken string
}
