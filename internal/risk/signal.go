// Package risk scores a credential-valid login attempt.
//
// Independent signals each contribute a fixed number of points and a reason
// label. The Engine sums the contributions, caps the total at MaxScore and
// keeps the reasons in signal order. Policy turns the capped score into a
// decision. Scoring is additive, so signal order only affects reason order.
package risk

import (
	"context"
	"iter"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
)

// MaxScore is the saturation point for the combined risk score
const MaxScore = 100

// Reason labels
const (
	ReasonHighVelocity  = "High Login Velocity"
	ReasonNewDevice     = "New Device"
	ReasonBadIP         = "Bad IP Reputation"
	ReasonAnomalousHour = "ML: Anomalous Login Time"
)

// HistoryReader is the read side of the login history store.
// Unknown identities behave as having no history.
type HistoryReader interface {
	// RecentSince yields attempts recorded strictly after since, in no particular order
	RecentSince(ctx context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error)
	// KnownDevices returns every non-empty device fingerprint ever recorded
	KnownDevices(ctx context.Context, identity string) (map[string]struct{}, error)
	// Count returns the number of recorded attempts
	Count(ctx context.Context, identity string) (int, error)
}

// Input is everything a signal may look at for one attempt
type Input struct {
	Identity string
	Context  models.LoginContext
	Now      time.Time
	History  HistoryReader
}

// Hour returns the requested hour of day, defaulting to the evaluation-time UTC hour
func (in Input) Hour() int {
	if in.Context.Hour != nil {
		return *in.Context.Hour
	}
	return in.Now.UTC().Hour()
}

// Signal is one independent risk check.
// Evaluate returns nil when the signal does not fire. An error means the
// signal could not be evaluated; the engine treats it as no contribution.
type Signal interface {
	Name() string
	Evaluate(ctx context.Context, in Input) (*models.SignalResult, error)
}
