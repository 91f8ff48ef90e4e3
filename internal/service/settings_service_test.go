package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/gate"
	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/pkg/kv"
)

// recordingPublisher captures published usage events for assertions.
type recordingPublisher struct {
	mu          sync.Mutex
	planChanges []string
	usageCount  int
}

func (p *recordingPublisher) PublishUsageUpdated(_ context.Context, _, _ string, _, _, _ int) {
	p.mu.Lock()
	p.usageCount++
	p.mu.Unlock()
}

func (p *recordingPublisher) PublishTierExhausted(context.Context, string, int, int) {}

func (p *recordingPublisher) PublishPlanChanged(_ context.Context, _, oldPlan, newPlan string) {
	p.mu.Lock()
	p.planChanges = append(p.planChanges, oldPlan+"->"+newPlan)
	p.mu.Unlock()
}

func newTestSettings(ceiling int) (SettingsService, *gate.Ledger, *recordingPublisher) {
	log := logger.NewNopLogger()
	ledger := gate.NewLedger(kv.NewMemoryStore(), log)
	pub := &recordingPublisher{}
	return NewSettingsService(ledger, ceiling, pub, log), ledger, pub
}

func TestGetUsageFreshInstall(t *testing.T) {
	svc, _, _ := newTestSettings(25)

	res, err := svc.GetUsage(context.Background(), testInstall)
	require.NoError(t, err)

	assert.Equal(t, "free", res.Plan)
	assert.Equal(t, 25, res.FreeTierLimit)
	assert.Equal(t, 0, res.FreeTooltipsUsed)
	assert.Equal(t, 25, res.FreeTooltipsRemaining)
	assert.False(t, res.HasCustomCredential)
	assert.True(t, res.UpgradeAvailable)
}

func TestSaveCredentialPublishesPlanChange(t *testing.T) {
	svc, _, pub := newTestSettings(25)
	ctx := context.Background()

	res, err := svc.SaveCredential(ctx, testInstall, &dto.SaveCredentialRequest{Credential: "  key-123  "})
	require.NoError(t, err)
	assert.Equal(t, "custom", res.Plan)
	assert.True(t, res.HasCustomCredential)
	assert.Equal(t, []string{"free->custom"}, pub.planChanges)

	// Saving the same plan again publishes nothing new.
	_, err = svc.SaveCredential(ctx, testInstall, &dto.SaveCredentialRequest{Credential: "key-456"})
	require.NoError(t, err)
	assert.Len(t, pub.planChanges, 1)

	// Clearing drops back to free.
	res, err = svc.SaveCredential(ctx, testInstall, &dto.SaveCredentialRequest{Credential: ""})
	require.NoError(t, err)
	assert.Equal(t, "free", res.Plan)
	assert.False(t, res.HasCustomCredential)
	assert.Equal(t, []string{"free->custom", "custom->free"}, pub.planChanges)
}

func TestSaveCredentialTrimsWhitespaceOnlyToEmpty(t *testing.T) {
	svc, ledger, _ := newTestSettings(25)
	ctx := context.Background()

	_, err := svc.SaveCredential(ctx, testInstall, &dto.SaveCredentialRequest{Credential: "   "})
	require.NoError(t, err)

	state, err := ledger.State(ctx, testInstall)
	require.NoError(t, err)
	assert.Empty(t, state.CustomCredential)
	assert.Equal(t, gate.PlanFree, state.Plan)
}

func TestResetUsagePublishesUpdate(t *testing.T) {
	svc, ledger, pub := newTestSettings(5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := ledger.ConsumeFreeAction(ctx, testInstall, 5)
		require.NoError(t, err)
	}

	res, err := svc.ResetUsage(ctx, testInstall)
	require.NoError(t, err)
	assert.Equal(t, 0, res.FreeTooltipsUsed)
	assert.Equal(t, 1, pub.usageCount)

	usage, err := svc.GetUsage(ctx, testInstall)
	require.NoError(t, err)
	assert.Equal(t, 5, usage.FreeTooltipsRemaining)
}
