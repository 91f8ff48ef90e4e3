package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/events"
	"ai-hovertip-be/internal/gate"
	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/pkg/channel"
	"ai-hovertip-be/pkg/kv"
	"ai-hovertip-be/pkg/llm"
	"ai-hovertip-be/pkg/ocr"
)

const testInstall = "7d3f2c1a-0a42-4c24-9d4f-2b6f4a1c0e77"

// echoProvider records the prompt and answers deterministically.
type echoProvider struct {
	lastPrompt     string
	lastCredential string
	err            error
}

func (p *echoProvider) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (p *echoProvider) Generate(_ context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := &llm.Options{}
	for _, o := range options {
		o(opts)
	}
	p.lastPrompt = prompt
	p.lastCredential = opts.Credential
	if p.err != nil {
		return "", p.err
	}
	return "a short summary", nil
}

func newTestEnrichment(ceiling int, fallback string, provider llm.LLMProvider) (EnrichmentService, *gate.Ledger) {
	log := logger.NewNopLogger()
	ledger := gate.NewLedger(kv.NewMemoryStore(), log)
	g := gate.NewGate(ledger, ceiling, fallback, log, events.NoopPublisher{})
	return NewEnrichmentService(g, ocr.NewStubRecognizer(), provider, log), ledger
}

func TestEnrichSummarizeText(t *testing.T) {
	provider := &echoProvider{}
	svc, _ := newTestEnrichment(5, "shared-key", provider)

	res, err := svc.Enrich(context.Background(), testInstall, &dto.EnrichRequest{
		Action: "summarize_text",
		Data:   "A long paragraph about something worth summarizing.",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "a short summary", res.Result)
	assert.Contains(t, provider.lastPrompt, "A long paragraph about something worth summarizing.")
	assert.Equal(t, "shared-key", provider.lastCredential)

	// Usage travels with the response.
	assert.Equal(t, "free", res.UsageInfo.Plan)
	assert.Equal(t, 1, res.UsageInfo.FreeTooltipsUsed)
	assert.Equal(t, 4, res.UsageInfo.FreeTooltipsRemaining)
}

func TestEnrichOcrUsesNoCredential(t *testing.T) {
	provider := &echoProvider{}
	svc, _ := newTestEnrichment(5, "shared-key", provider)

	res, err := svc.Enrich(context.Background(), testInstall, &dto.EnrichRequest{
		Action: "ocr_image",
		Data:   "https://example.com/pic.png",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Result)
	// The LLM was never consulted.
	assert.Empty(t, provider.lastPrompt)
	// Recognition is still metered.
	assert.Equal(t, 1, res.UsageInfo.FreeTooltipsUsed)
}

func TestEnrichDenialMapping(t *testing.T) {
	t.Run("exhausted free tier", func(t *testing.T) {
		svc, _ := newTestEnrichment(1, "shared-key", &echoProvider{})

		_, err := svc.Enrich(context.Background(), testInstall, &dto.EnrichRequest{
			Action: "summarize_text", Data: "first",
		})
		require.NoError(t, err)

		res, err := svc.Enrich(context.Background(), testInstall, &dto.EnrichRequest{
			Action: "summarize_text", Data: "second",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, string(channel.CodeExhaustedFreeTier), res.ErrorCode)
		assert.Equal(t, 0, res.UsageInfo.FreeTooltipsRemaining)
	})

	t.Run("paid plan without credential", func(t *testing.T) {
		svc, ledger := newTestEnrichment(5, "shared-key", &echoProvider{})
		_, err := ledger.MarkPaidUpgrade(context.Background(), testInstall)
		require.NoError(t, err)

		res, err := svc.Enrich(context.Background(), testInstall, &dto.EnrichRequest{
			Action: "summarize_text", Data: "text",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, string(channel.CodeCredentialRequired), res.ErrorCode)
		assert.Equal(t, -1, res.UsageInfo.FreeTooltipsRemaining)
	})

	t.Run("no fallback credential for summarization", func(t *testing.T) {
		svc, _ := newTestEnrichment(5, "", &echoProvider{})

		res, err := svc.Enrich(context.Background(), testInstall, &dto.EnrichRequest{
			Action: "summarize_text", Data: "text",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, string(channel.CodeCredentialRequired), res.ErrorCode)
		// Nothing was consumed by the denial.
		assert.Equal(t, 0, res.UsageInfo.FreeTooltipsUsed)
	})
}

func TestEnrichCustomCredentialFlowsToProvider(t *testing.T) {
	provider := &echoProvider{}
	svc, ledger := newTestEnrichment(1, "shared-key", provider)

	_, err := ledger.SetCustomCredential(context.Background(), testInstall, "personal-key")
	require.NoError(t, err)

	res, err := svc.Enrich(context.Background(), testInstall, &dto.EnrichRequest{
		Action: "summarize_text", Data: "text",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "personal-key", provider.lastCredential)
	assert.Equal(t, "custom", res.UsageInfo.Plan)
}

func TestEnrichPipelineFailureSurfacesProviderError(t *testing.T) {
	provider := &echoProvider{err: errors.New("  upstream 500  ")}
	svc, _ := newTestEnrichment(5, "shared-key", provider)

	res, err := svc.Enrich(context.Background(), testInstall, &dto.EnrichRequest{
		Action: "summarize_text", Data: "text",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, string(channel.CodeUnknown), res.ErrorCode)
	// The provider's message reaches the tooltip verbatim, trimmed.
	assert.Equal(t, "upstream 500", res.Error)
}
