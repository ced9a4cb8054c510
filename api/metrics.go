package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "menu-api/api"
	menuRoute  = "/api/businesses/:id/menu"
)

type menuRequestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	start         time.Time
	businessID    string
	fetchDuration time.Duration
	buildDuration time.Duration
	categories    int
	items         int
	errorStage    string
}

func newMenuRequestMetrics(ctx context.Context, logger *log.Logger, businessID string) (*menuRequestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "GET "+menuRoute,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.route", menuRoute),
			attribute.String("menu.business_id", businessID),
		),
	)
	return &menuRequestMetrics{
		logger:     logger,
		span:       span,
		start:      time.Now(),
		businessID: businessID,
	}, ctx
}

func (m *menuRequestMetrics) ObserveFetch(d time.Duration) {
	if d > 0 {
		m.fetchDuration = d
	}
}

func (m *menuRequestMetrics) ObserveBuild(d time.Duration) {
	if d > 0 {
		m.buildDuration = d
	}
}

func (m *menuRequestMetrics) SetReturned(categories, items int) {
	m.categories = categories
	m.items = items
}

func (m *menuRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

func (m *menuRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := time.Since(m.start)

	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("menu.categories_returned", m.categories),
			attribute.Int("menu.items_returned", m.items),
			attribute.Float64("menu.total_ms", durationToMillis(total)),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("menu.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else if status >= 500 {
			m.span.SetStatus(codes.Error, m.errorStage)
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"route":               menuRoute,
		"business":            m.businessID,
		"status":              status,
		"total_ms":            durationToMillis(total),
		"categories_returned": m.categories,
		"items_returned":      m.items,
	}
	if m.fetchDuration > 0 {
		fields["fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.buildDuration > 0 {
		fields["build_ms"] = durationToMillis(m.buildDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("menu.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
