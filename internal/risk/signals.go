package risk

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
)

// VelocitySignal fires when too many attempts land inside the trailing window.
// The attempt under evaluation counts towards Threshold.
type VelocitySignal struct {
	Window    time.Duration
	Threshold int
	Points    int
}

func (s VelocitySignal) Name() string { return "velocity" }

func (s VelocitySignal) Evaluate(ctx context.Context, in Input) (*models.SignalResult, error) {
	if in.History == nil {
		return nil, fmt.Errorf("%w: no history reader", models.ErrEvaluatorUnavailable)
	}

	recent, err := in.History.RecentSince(ctx, in.Identity, in.Now.Add(-s.Window))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEvaluatorUnavailable, err)
	}

	count := 1
	for range recent {
		count++
	}

	if count < s.Threshold {
		return nil, nil
	}
	return &models.SignalResult{Points: s.Points, Reason: ReasonHighVelocity}, nil
}

// DeviceNoveltySignal fires when the fingerprint has never been seen for the identity.
// An identity without history is exempt so a first login is never flagged as novel.
type DeviceNoveltySignal struct {
	Points int
}

func (s DeviceNoveltySignal) Name() string { return "device_novelty" }

func (s DeviceNoveltySignal) Evaluate(ctx context.Context, in Input) (*models.SignalResult, error) {
	if in.History == nil {
		return nil, fmt.Errorf("%w: no history reader", models.ErrEvaluatorUnavailable)
	}

	n, err := in.History.Count(ctx, in.Identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEvaluatorUnavailable, err)
	}
	if n == 0 {
		return nil, nil
	}

	known, err := in.History.KnownDevices(ctx, in.Identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEvaluatorUnavailable, err)
	}

	if fp := in.Context.DeviceFingerprint; fp != nil {
		if _, ok := known[*fp]; ok {
			return nil, nil
		}
	}
	return &models.SignalResult{Points: s.Points, Reason: ReasonNewDevice}, nil
}

// IPReputation answers whether a source address is flagged.
// A static blocklist, a database table or an external feed can sit behind it.
type IPReputation interface {
	IsFlagged(ctx context.Context, ip string) (bool, error)
}

// StaticBlocklist is an IPReputation backed by a fixed set of addresses
type StaticBlocklist struct {
	entries map[string]struct{}
}

// NewStaticBlocklist builds a blocklist; blank entries are ignored
func NewStaticBlocklist(ips ...string) *StaticBlocklist {
	b := &StaticBlocklist{entries: make(map[string]struct{}, len(ips))}
	for _, ip := range ips {
		if key := canonicalIP(ip); key != "" {
			b.entries[key] = struct{}{}
		}
	}
	return b
}

func (b *StaticBlocklist) IsFlagged(_ context.Context, ip string) (bool, error) {
	_, ok := b.entries[canonicalIP(ip)]
	return ok, nil
}

// Len returns the number of blocklisted addresses
func (b *StaticBlocklist) Len() int {
	return len(b.entries)
}

// canonicalIP normalises parseable addresses (e.g. IPv6 zero compression) and
// falls back to the trimmed input otherwise.
func canonicalIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if addr, err := netip.ParseAddr(ip); err == nil {
		return addr.Unmap().String()
	}
	return ip
}

// ReputationSignal fires when the source IP is flagged
type ReputationSignal struct {
	Source IPReputation
	Points int
}

func (s ReputationSignal) Name() string { return "ip_reputation" }

func (s ReputationSignal) Evaluate(ctx context.Context, in Input) (*models.SignalResult, error) {
	ip := in.Context.IPAddress
	if ip == nil || *ip == "" {
		return nil, nil
	}
	if s.Source == nil {
		return nil, fmt.Errorf("%w: no reputation source", models.ErrEvaluatorUnavailable)
	}

	flagged, err := s.Source.IsFlagged(ctx, *ip)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEvaluatorUnavailable, err)
	}
	if !flagged {
		return nil, nil
	}
	return &models.SignalResult{Points: s.Points, Reason: ReasonBadIP}, nil
}

// HourClassifier decides whether a login hour is atypical
type HourClassifier interface {
	IsOutlier(hour int) (bool, error)
}

// TemporalSignal fires when the classifier marks the login hour as an outlier
type TemporalSignal struct {
	Detector HourClassifier
	Points   int
}

func (s TemporalSignal) Name() string { return "temporal_anomaly" }

func (s TemporalSignal) Evaluate(_ context.Context, in Input) (*models.SignalResult, error) {
	if s.Detector == nil {
		return nil, fmt.Errorf("%w: no detector", models.ErrEvaluatorUnavailable)
	}

	outlier, err := s.Detector.IsOutlier(in.Hour())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEvaluatorUnavailable, err)
	}
	if !outlier {
		return nil, nil
	}
	return &models.SignalResult{Points: s.Points, Reason: ReasonAnomalousHour}, nil
}
