package anomaly

import (
	"fmt"
	"slices"
	"sort"

	"github.com/BradenHooton/riskgate/internal/models"
)

// TemporalConfig describes the synthetic "typical hours" training set and the
// forest parameters for the login-hour detector.
type TemporalConfig struct {
	Seed          int64   `env:"ANOMALY_SEED" envDefault:"42"`
	Trees         int     `env:"ANOMALY_TREES" envDefault:"100"`
	Contamination float64 `env:"ANOMALY_CONTAMINATION" envDefault:"0.1"`
	BandStart     int     `env:"ANOMALY_BAND_START" envDefault:"8"`
	BandEnd       int     `env:"ANOMALY_BAND_END" envDefault:"18"`
	Replicas      int     `env:"ANOMALY_REPLICAS" envDefault:"5"`
}

// DefaultTemporalConfig returns the reference training setup (08:00-18:00, seed 42)
func DefaultTemporalConfig() TemporalConfig {
	return TemporalConfig{
		Seed:          42,
		Trees:         100,
		Contamination: 0.1,
		BandStart:     8,
		BandEnd:       18,
		Replicas:      5,
	}
}

// Validate checks the training parameters
func (c TemporalConfig) Validate() error {
	if c.BandStart < 0 || c.BandEnd > 23 || c.BandStart > c.BandEnd {
		return fmt.Errorf("%w: anomaly band %d-%d", models.ErrInvalidConfig, c.BandStart, c.BandEnd)
	}
	if c.Replicas < 1 {
		return fmt.Errorf("%w: anomaly replicas must be positive", models.ErrInvalidConfig)
	}
	if c.Contamination <= 0 || c.Contamination >= 0.5 {
		return fmt.Errorf("%w: anomaly contamination must be in (0, 0.5)", models.ErrInvalidConfig)
	}
	return nil
}

// TemporalDetector classifies login hours as typical or anomalous.
// It is trained once and is read-only afterwards, so queries need no locking.
type TemporalDetector struct {
	forest    *IsolationForest
	threshold float64
}

// hourFeatures pairs the hour with a constant discriminator, matching the training shape
func hourFeatures(hour int) []float64 {
	return []float64{float64(hour), 1}
}

// TrainTemporalDetector fits the detector on the configured band.
// Any failure is reported as ErrDetectorUntrained.
func TrainTemporalDetector(cfg TemporalConfig) (*TemporalDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDetectorUntrained, err)
	}

	var X [][]float64
	for r := 0; r < cfg.Replicas; r++ {
		for h := cfg.BandStart; h <= cfg.BandEnd; h++ {
			X = append(X, hourFeatures(h))
		}
	}

	forest := NewIsolationForest(cfg.Trees, 256, cfg.Seed)
	if err := forest.Fit(X); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDetectorUntrained, err)
	}

	scores := make([]float64, len(X))
	for i, x := range X {
		scores[i] = forest.Score(x)
	}

	// Every hour of the training band stays an inlier
	threshold := percentile(scores, 1-cfg.Contamination)
	if highest := slices.Max(scores); highest > threshold {
		threshold = highest
	}

	return &TemporalDetector{
		forest:    forest,
		threshold: threshold,
	}, nil
}

// IsOutlier reports whether the hour falls outside the learned distribution
func (d *TemporalDetector) IsOutlier(hour int) (bool, error) {
	if d == nil || d.forest == nil || !d.forest.Trained() {
		return false, models.ErrDetectorUntrained
	}
	if hour < 0 || hour > 23 {
		return false, fmt.Errorf("%w: hour %d out of range", models.ErrBadRequest, hour)
	}
	return d.forest.Score(hourFeatures(hour)) > d.threshold, nil
}

// Threshold returns the anomaly score cut-off: the contamination percentile of
// the training scores, raised to the highest training score if it falls below it
func (d *TemporalDetector) Threshold() float64 {
	return d.threshold
}

// percentile returns the linearly interpolated q-quantile (q in [0,1]) of values
func percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// BandDetector is a rule-based alternative: any hour outside [Start, End] is an outlier
type BandDetector struct {
	Start int
	End   int
}

// IsOutlier implements the same contract as TemporalDetector
func (b BandDetector) IsOutlier(hour int) (bool, error) {
	if hour < 0 || hour > 23 {
		return false, fmt.Errorf("%w: hour %d out of range", models.ErrBadRequest, hour)
	}
	return hour < b.Start || hour > b.End, nil
}
