package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/seungjae8520/hjjtest/internal/services"

// Submission outcomes recorded on the site.submissions counter.
const (
	outcomeSucceeded = "succeeded"
	outcomeSimulated = "simulated"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
	outcomeInvalid   = "invalid"
)

type submissionCounter struct {
	kind    string
	counter metric.Int64Counter
}

func newSubmissionCounter(meter metric.Meter, kind string) submissionCounter {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	counter, err := meter.Int64Counter("site.submissions",
		metric.WithDescription("Lead and order submissions by outcome"),
	)
	if err != nil {
		counter = nil
	}
	return submissionCounter{kind: kind, counter: counter}
}

func (c submissionCounter) record(ctx context.Context, outcome string) {
	if c.counter == nil {
		return
	}
	c.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", c.kind),
		attribute.String("outcome", outcome),
	))
}
