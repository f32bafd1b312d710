package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsUserScopedLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("action", "submit"),
		attribute.String("candidate_id", "456"),
		attribute.String("stage", "SUBMITTED"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "candidate_id" {
			t.Fatalf("candidate_id must not be used as a metric label")
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordApplicationTransition(context.Background(), "submit", "SUBMITTED")
	m.RecordNotification(context.Background(), "application.submitted", "sent")
	m.RecordRateLimitAllowed(context.Background(), "/api/applications")
	m.RecordRateLimitDenied(context.Background(), "/api/applications", "user-rate")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordApplicationTransition(context.Background(), "review", "SUCCESS")
}
