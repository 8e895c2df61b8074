// Package report periodically scores every zone's overflow risk and
// publishes the assessments for downstream dispatch systems.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/observability"
	"github.com/couchcryptid/sanitation-analytics-service/internal/risk"
	"github.com/jonboulle/clockwork"
)

// Publisher delivers a batch of assessments.
type Publisher interface {
	PublishAssessments(ctx context.Context, assessments []domain.RiskAssessment) error
}

// Reporter runs risk.AssessAll on a fixed interval.
type Reporter struct {
	events    domain.EventQuery
	publisher Publisher
	risk      risk.Config
	interval  time.Duration
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// Options configures a Reporter. A nil Clock uses the real clock.
type Options struct {
	Interval time.Duration
	Risk     risk.Config
	Clock    clockwork.Clock
}

// New creates a Reporter.
func New(events domain.EventQuery, publisher Publisher, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Reporter {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Reporter{
		events:    events,
		publisher: publisher,
		risk:      opts.Risk,
		interval:  opts.Interval,
		clock:     opts.Clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run publishes a report immediately and then on every tick until ctx is
// cancelled. Failed runs are logged and counted; the loop keeps going.
func (r *Reporter) Run(ctx context.Context) error {
	r.logger.Info("risk reporter started", "interval", r.interval)
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("risk reporter stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.runAndLog(ctx)
		}
	}
}

func (r *Reporter) runAndLog(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.metrics.RiskReportErrors.Inc()
		r.logger.Error("risk report failed", "error", err)
	}
}

// RunOnce assesses all zones as of now and publishes the result.
func (r *Reporter) RunOnce(ctx context.Context) ([]domain.RiskAssessment, error) {
	asOf := r.clock.Now().UTC()
	events, err := r.events.Query(ctx, domain.Filter{
		From: asOf.AddDate(0, 0, -risk.OverflowWindowDays),
		To:   asOf.Add(time.Nanosecond),
	})
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	assessments := risk.AssessAll(events, asOf, r.risk)
	if err := r.publisher.PublishAssessments(ctx, assessments); err != nil {
		return nil, fmt.Errorf("publish assessments: %w", err)
	}

	high := 0
	for _, a := range assessments {
		if a.RiskLevel == domain.RiskHigh {
			high++
		}
	}
	r.metrics.RiskReportsPublished.Add(float64(len(assessments)))
	r.metrics.HighRiskZones.Set(float64(high))
	r.logger.Info("risk report published", "zones", len(assessments), "high_risk", high)
	return assessments, nil
}
