// Package traced wraps a settings backend so every boundary call runs in
// its own OpenTelemetry span.
package traced

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
	"github.com/custodia-labs/scribe/internal/observability"
)

// TracerName names the tracer used for backend spans.
const TracerName = "scribe.backend"

// Ensure Backend implements the interface.
var _ driven.SettingsBackend = (*Backend)(nil)

// Backend is a tracing decorator around another SettingsBackend.
type Backend struct {
	next   driven.SettingsBackend
	tracer trace.Tracer
}

// New wraps next. Spans go to the global TracerProvider.
func New(next driven.SettingsBackend) *Backend {
	return &Backend{next: next, tracer: observability.Tracer(TracerName)}
}

func (b *Backend) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, "backend."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// finish records err on span. Domain rejections are tagged but keep the
// span status unset since the boundary itself worked.
func finish(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		span.SetAttributes(attribute.String("scribe.rejection", domainErr.Message))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func keyNames(partial domain.Snapshot) []string {
	keys := partial.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return names
}

func (b *Backend) GetSettings(ctx context.Context) (domain.Snapshot, error) {
	ctx, span := b.start(ctx, "get_settings")
	snap, err := b.next.GetSettings(ctx)
	span.SetAttributes(attribute.Int("scribe.settings.count", len(snap)))
	finish(span, err)
	return snap, err
}

func (b *Backend) GetDefaults(ctx context.Context) (domain.Snapshot, error) {
	ctx, span := b.start(ctx, "get_defaults")
	snap, err := b.next.GetDefaults(ctx)
	finish(span, err)
	return snap, err
}

func (b *Backend) Persist(ctx context.Context, partial domain.Snapshot) error {
	ctx, span := b.start(ctx, "persist", attribute.StringSlice("scribe.settings.keys", keyNames(partial)))
	err := b.next.Persist(ctx, partial)
	finish(span, err)
	return err
}

func (b *Backend) ListModels(ctx context.Context, providerID string) ([]string, error) {
	ctx, span := b.start(ctx, "list_models", attribute.String("scribe.provider", providerID))
	models, err := b.next.ListModels(ctx, providerID)
	span.SetAttributes(attribute.Int("scribe.models.count", len(models)))
	finish(span, err)
	return models, err
}

func (b *Backend) RunTransform(ctx context.Context, input string) (string, error) {
	ctx, span := b.start(ctx, "run_transform", attribute.Int("scribe.input.length", len(input)))
	output, err := b.next.RunTransform(ctx, input)
	finish(span, err)
	return output, err
}

func (b *Backend) AddPrompt(ctx context.Context, name, text string) (domain.Prompt, error) {
	ctx, span := b.start(ctx, "add_prompt")
	prompt, err := b.next.AddPrompt(ctx, name, text)
	span.SetAttributes(attribute.String("scribe.prompt.id", prompt.ID))
	finish(span, err)
	return prompt, err
}

func (b *Backend) UpdatePrompt(ctx context.Context, prompt domain.Prompt) error {
	ctx, span := b.start(ctx, "update_prompt", attribute.String("scribe.prompt.id", prompt.ID))
	err := b.next.UpdatePrompt(ctx, prompt)
	finish(span, err)
	return err
}

func (b *Backend) DeletePrompt(ctx context.Context, id string) error {
	ctx, span := b.start(ctx, "delete_prompt", attribute.String("scribe.prompt.id", id))
	err := b.next.DeletePrompt(ctx, id)
	finish(span, err)
	return err
}
