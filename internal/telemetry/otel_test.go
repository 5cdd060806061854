package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	tel, shutdown, err := Init(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.False(t, tel.Enabled())
	assert.NoError(t, shutdown(context.Background()))

	ctx := context.Background()
	got, span := tel.StartSpan(ctx, "specflow.test", nil)
	assert.Equal(t, ctx, got)
	assert.Nil(t, span)
	tel.EndSpan(span, "passed", nil, nil)
}

func TestInit_EnabledWithoutEndpoint(t *testing.T) {
	_, _, err := Init(context.Background(), Config{Enabled: true}, nil)
	require.Error(t, err)
}

func TestSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tel := New(provider)

	ctx, parent := tel.StartSpan(context.Background(), "specflow.test", map[string]string{"spec": "login"})
	_, child := tel.StartSpan(ctx, "specflow.step", map[string]string{"step.id": "step-1"})
	tel.EndSpan(child, "failed", errors.New("boom"), map[string]string{"step.attempts": "3"})
	tel.EndSpan(parent, "passed", nil, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "specflow.step", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("step.attempts", "3"))
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, codes.Ok, spans[1].Status.Code)
}

func TestParseKeyValueList(t *testing.T) {
	got := parseKeyValueList(" a=1, b = two ,bad,=x,")
	assert.Equal(t, map[string]string{"a": "1", "b": "two"}, got)
}
