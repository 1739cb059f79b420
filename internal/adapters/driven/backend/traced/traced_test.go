package traced

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/custodia-labs/scribe/internal/adapters/driven/backend/local"
	"github.com/custodia-labs/scribe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

type nopFactory struct{}

func (nopFactory) Create(domain.ProviderOption, string, string) (driven.LLMService, error) {
	return nil, errors.New("no providers in tests")
}

func newTracedBackend(t *testing.T) (*Backend, *memory.SettingsStore, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = provider.Shutdown(context.Background())
	})

	repo := memory.NewSettingsStore(nil)
	return New(local.New(repo, nopFactory{})), repo, recorder
}

func TestBackend_RecordsSpans(t *testing.T) {
	b, _, recorder := newTracedBackend(t)
	ctx := context.Background()

	_, err := b.GetSettings(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Persist(ctx, domain.Snapshot{domain.KeyDebugMode: domain.Bool(true)}))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "backend.get_settings", spans[0].Name())
	assert.Equal(t, "backend.persist", spans[1].Name())
	assert.Equal(t, codes.Ok, spans[1].Status().Code)

	var keys []string
	for _, attr := range spans[1].Attributes() {
		if attr.Key == "scribe.settings.keys" {
			keys = attr.Value.AsStringSlice()
		}
	}
	assert.Equal(t, []string{"debug_mode"}, keys)
}

func TestBackend_DomainRejectionKeepsStatusUnset(t *testing.T) {
	b, _, recorder := newTracedBackend(t)

	_, err := b.ListModels(context.Background(), "nope")
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Empty(t, spans[0].Events())
}

func TestBackend_TransportFailureMarksError(t *testing.T) {
	b, repo, recorder := newTracedBackend(t)
	repo.FailSaves(errors.New("disk full"))

	err := b.Persist(context.Background(), domain.Snapshot{domain.KeyDebugMode: domain.Bool(true)})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Status().Description, "disk full")
}
