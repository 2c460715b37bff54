package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/BradenHooton/riskgate/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Engine runs every signal for an attempt and folds the results into one assessment.
// It holds no mutable state; concurrent Assess calls are safe.
type Engine struct {
	signals []Signal
	history HistoryReader
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewEngine creates an engine that evaluates signals in the given order
func NewEngine(history HistoryReader, logger *slog.Logger, signals ...Signal) *Engine {
	return &Engine{
		signals: signals,
		history: history,
		logger:  logger,
		tracer:  observability.Tracer(),
	}
}

// NewDefaultEngine wires the four standard signals:
// velocity, device novelty, IP reputation, temporal anomaly.
func NewDefaultEngine(cfg Config, history HistoryReader, reputation IPReputation, detector HourClassifier, logger *slog.Logger) *Engine {
	return NewEngine(history, logger,
		VelocitySignal{Window: cfg.VelocityWindow, Threshold: cfg.VelocityThreshold, Points: cfg.VelocityPoints},
		DeviceNoveltySignal{Points: cfg.NewDevicePoints},
		ReputationSignal{Source: reputation, Points: cfg.BadIPPoints},
		TemporalSignal{Detector: detector, Points: cfg.AnomalyPoints},
	)
}

// Assess scores an attempt. It never fails: a signal that errors or panics
// contributes nothing and is logged.
func (e *Engine) Assess(ctx context.Context, identity string, lctx models.LoginContext, now time.Time) models.RiskAssessment {
	ctx, span := e.tracer.Start(ctx, "risk.assess")
	defer span.End()

	in := Input{
		Identity: identity,
		Context:  lctx,
		Now:      now,
		History:  e.history,
	}

	total := 0
	reasons := make([]string, 0, len(e.signals))
	for _, s := range e.signals {
		res, err := e.evaluate(ctx, s, in)
		if err != nil {
			observability.SignalFailures.WithLabelValues(s.Name()).Inc()
			e.logger.Warn("risk signal unavailable",
				slog.String("signal", s.Name()),
				slog.Any("error", err))
			continue
		}
		if res == nil {
			continue
		}
		observability.SignalsFired.WithLabelValues(s.Name()).Inc()
		total += res.Points
		reasons = append(reasons, res.Reason)
	}

	score := Clamp(total)
	observability.RiskScores.Observe(float64(score))
	span.SetAttributes(
		attribute.Int("risk.score", score),
		attribute.StringSlice("risk.reasons", reasons),
	)

	return models.RiskAssessment{Score: score, Reasons: reasons}
}

func (e *Engine) evaluate(ctx context.Context, s Signal, in Input) (res *models.SignalResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: panic: %v", models.ErrEvaluatorUnavailable, r)
		}
	}()

	res, err = s.Evaluate(ctx, in)
	if res != nil && res.Points < 0 {
		return nil, fmt.Errorf("%w: negative contribution %d", models.ErrEvaluatorUnavailable, res.Points)
	}
	return res, err
}

// Clamp saturates a raw point sum into [0, MaxScore]
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
