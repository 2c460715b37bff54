package risk

import (
	"context"
	"iter"
	"slices"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
)

// MockHistoryReader implements HistoryReader for testing
type MockHistoryReader struct {
	RecentSinceFunc  func(ctx context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error)
	KnownDevicesFunc func(ctx context.Context, identity string) (map[string]struct{}, error)
	CountFunc        func(ctx context.Context, identity string) (int, error)
}

func (m *MockHistoryReader) RecentSince(ctx context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error) {
	if m.RecentSinceFunc != nil {
		return m.RecentSinceFunc(ctx, identity, since)
	}
	return slices.Values([]models.LoginAttempt(nil)), nil
}

func (m *MockHistoryReader) KnownDevices(ctx context.Context, identity string) (map[string]struct{}, error) {
	if m.KnownDevicesFunc != nil {
		return m.KnownDevicesFunc(ctx, identity)
	}
	return map[string]struct{}{}, nil
}

func (m *MockHistoryReader) Count(ctx context.Context, identity string) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, identity)
	}
	return 0, nil
}

// sliceHistory is a HistoryReader over a fixed attempt list
type sliceHistory []models.LoginAttempt

func (h sliceHistory) RecentSince(_ context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error) {
	return func(yield func(models.LoginAttempt) bool) {
		for _, a := range h {
			if a.Identity == identity && a.AttemptTime.After(since) {
				if !yield(a) {
					return
				}
			}
		}
	}, nil
}

func (h sliceHistory) KnownDevices(_ context.Context, identity string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, a := range h {
		if a.Identity == identity && a.DeviceFingerprint != nil && *a.DeviceFingerprint != "" {
			out[*a.DeviceFingerprint] = struct{}{}
		}
	}
	return out, nil
}

func (h sliceHistory) Count(_ context.Context, identity string) (int, error) {
	n := 0
	for _, a := range h {
		if a.Identity == identity {
			n++
		}
	}
	return n, nil
}

// MockHourClassifier implements HourClassifier for testing
type MockHourClassifier struct {
	IsOutlierFunc func(hour int) (bool, error)
}

func (m *MockHourClassifier) IsOutlier(hour int) (bool, error) {
	if m.IsOutlierFunc != nil {
		return m.IsOutlierFunc(hour)
	}
	return false, nil
}

// stubSignal returns a fixed result
type stubSignal struct {
	name   string
	result *models.SignalResult
	err    error
	panics bool
}

func (s stubSignal) Name() string { return s.name }

func (s stubSignal) Evaluate(context.Context, Input) (*models.SignalResult, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func attempt(identity string, at time.Time, device string) models.LoginAttempt {
	a := models.LoginAttempt{Identity: identity, AttemptTime: at, Decision: models.DecisionAllow}
	if device != "" {
		a.DeviceFingerprint = strPtr(device)
	}
	return a
}
