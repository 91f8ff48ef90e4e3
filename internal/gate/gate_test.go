package gate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-hovertip-be/internal/events"
	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/pkg/kv"
)

const testInstall = "install-1"

func newTestGate(t *testing.T, ceiling int, fallback string) (*Gate, *Ledger) {
	t.Helper()
	ledger := NewLedger(kv.NewMemoryStore(), logger.NewNopLogger())
	return NewGate(ledger, ceiling, fallback, logger.NewNopLogger(), events.NoopPublisher{}), ledger
}

func TestAuthorizeConsumesFreeTierUntilExhausted(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t, 2, "shared-key")

	first, err := g.Authorize(ctx, testInstall, KindSummarization)
	require.NoError(t, err)
	assert.True(t, first.Proceed)
	assert.Equal(t, "shared-key", first.Credential)
	assert.Equal(t, 1, first.Usage.Used)
	assert.Equal(t, 1, first.Usage.Remaining)

	second, err := g.Authorize(ctx, testInstall, KindRecognition)
	require.NoError(t, err)
	assert.True(t, second.Proceed)
	// Recognition runs locally, no credential attached.
	assert.Empty(t, second.Credential)
	assert.Equal(t, 0, second.Usage.Remaining)

	third, err := g.Authorize(ctx, testInstall, KindSummarization)
	require.NoError(t, err)
	assert.False(t, third.Proceed)
	assert.Equal(t, ReasonExhaustedFreeTier, third.Reason)
	assert.Equal(t, 2, third.Usage.Used)
}

func TestAuthorizeCustomCredentialWinsAndIsUnmetered(t *testing.T) {
	ctx := context.Background()
	g, ledger := newTestGate(t, 1, "shared-key")

	_, err := ledger.SetCustomCredential(ctx, testInstall, "personal-key")
	require.NoError(t, err)

	// Far more requests than the ceiling; none are metered.
	for i := 0; i < 5; i++ {
		decision, err := g.Authorize(ctx, testInstall, KindSummarization)
		require.NoError(t, err)
		assert.True(t, decision.Proceed)
		assert.Equal(t, "personal-key", decision.Credential)
		assert.Equal(t, -1, decision.Usage.Remaining)
	}

	state, err := ledger.State(ctx, testInstall)
	require.NoError(t, err)
	assert.Equal(t, 0, state.FreeActionsUsed)
}

func TestAuthorizeCustomCredentialBypassesExhaustion(t *testing.T) {
	ctx := context.Background()
	g, ledger := newTestGate(t, 1, "shared-key")

	// Burn the tier first, then add a personal key.
	_, err := g.Authorize(ctx, testInstall, KindSummarization)
	require.NoError(t, err)
	denied, err := g.Authorize(ctx, testInstall, KindSummarization)
	require.NoError(t, err)
	require.False(t, denied.Proceed)

	_, err = ledger.SetCustomCredential(ctx, testInstall, "personal-key")
	require.NoError(t, err)

	decision, err := g.Authorize(ctx, testInstall, KindSummarization)
	require.NoError(t, err)
	assert.True(t, decision.Proceed)
	assert.Equal(t, "personal-key", decision.Credential)
}

func TestAuthorizePaidWithoutCredentialIsDenied(t *testing.T) {
	ctx := context.Background()
	g, ledger := newTestGate(t, 10, "shared-key")

	_, err := ledger.MarkPaidUpgrade(ctx, testInstall)
	require.NoError(t, err)

	decision, err := g.Authorize(ctx, testInstall, KindSummarization)
	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	// Payment never grants the shared credential.
	assert.Equal(t, ReasonSubscriptionNeedsCredential, decision.Reason)
	assert.Equal(t, -1, decision.Usage.Remaining)

	// Recognition needs no credential but the paid plan still routes
	// through the personal-credential requirement.
	decision, err = g.Authorize(ctx, testInstall, KindRecognition)
	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, ReasonSubscriptionNeedsCredential, decision.Reason)
}

func TestAuthorizeSummarizationNeedsFallbackCredential(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t, 10, "")

	decision, err := g.Authorize(ctx, testInstall, KindSummarization)
	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, ReasonNoFallbackCredential, decision.Reason)
	// The denial consumed nothing.
	assert.Equal(t, 0, decision.Usage.Used)

	// Recognition has no credential need and still proceeds.
	decision, err = g.Authorize(ctx, testInstall, KindRecognition)
	require.NoError(t, err)
	assert.True(t, decision.Proceed)
	assert.Equal(t, 1, decision.Usage.Used)
}

func TestAuthorizeConcurrentHoversNeverOverConsume(t *testing.T) {
	ctx := context.Background()
	ceiling := 10
	g, ledger := newTestGate(t, ceiling, "shared-key")

	var wg sync.WaitGroup
	proceeds := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := g.Authorize(ctx, testInstall, KindSummarization)
			if err == nil {
				proceeds <- decision.Proceed
			}
		}()
	}
	wg.Wait()
	close(proceeds)

	granted := 0
	for p := range proceeds {
		if p {
			granted++
		}
	}
	assert.Equal(t, ceiling, granted)

	state, err := ledger.State(ctx, testInstall)
	require.NoError(t, err)
	assert.Equal(t, ceiling, state.FreeActionsUsed)
}

func TestLedgerClearingCredentialFallsBack(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(kv.NewMemoryStore(), logger.NewNopLogger())

	// Free install: set then clear drops back to free.
	state, err := ledger.SetCustomCredential(ctx, testInstall, "key")
	require.NoError(t, err)
	assert.Equal(t, PlanCustom, state.Plan)

	state, err = ledger.SetCustomCredential(ctx, testInstall, "")
	require.NoError(t, err)
	assert.Equal(t, PlanFree, state.Plan)

	// Upgraded install: clearing falls back to paid, not free.
	_, err = ledger.MarkPaidUpgrade(ctx, testInstall)
	require.NoError(t, err)
	state, err = ledger.SetCustomCredential(ctx, testInstall, "key")
	require.NoError(t, err)
	assert.Equal(t, PlanCustom, state.Plan)

	state, err = ledger.SetCustomCredential(ctx, testInstall, "")
	require.NoError(t, err)
	assert.Equal(t, PlanPaid, state.Plan)
}

func TestLedgerResetKeepsPlan(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(kv.NewMemoryStore(), logger.NewNopLogger())

	_, _, err := ledger.ConsumeFreeAction(ctx, testInstall, 5)
	require.NoError(t, err)
	_, err = ledger.MarkPaidUpgrade(ctx, testInstall)
	require.NoError(t, err)

	state, err := ledger.ResetUsage(ctx, testInstall)
	require.NoError(t, err)
	assert.Equal(t, 0, state.FreeActionsUsed)
	assert.Equal(t, PlanPaid, state.Plan)
	assert.True(t, state.PaidUpgraded)
}

func TestLedgerCorruptRecordReinitializes(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, usageKeyPrefix+testInstall, "{garbage"))

	ledger := NewLedger(store, logger.NewNopLogger())
	state, err := ledger.State(ctx, testInstall)
	require.NoError(t, err)
	assert.Equal(t, PlanFree, state.Plan)
	assert.Equal(t, 0, state.FreeActionsUsed)
}

func TestSnapshotRemaining(t *testing.T) {
	tests := []struct {
		name          string
		state         UsageState
		ceiling       int
		wantRemaining int
	}{
		{"fresh free", UsageState{Plan: PlanFree}, 25, 25},
		{"partially used", UsageState{Plan: PlanFree, FreeActionsUsed: 10}, 25, 15},
		{"over ceiling clamps to zero", UsageState{Plan: PlanFree, FreeActionsUsed: 30}, 25, 0},
		{"paid is unlimited", UsageState{Plan: PlanPaid}, 25, -1},
		{"custom is unlimited", UsageState{Plan: PlanCustom, FreeActionsUsed: 5}, 25, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := SnapshotOf(&tt.state, tt.ceiling)
			assert.Equal(t, tt.wantRemaining, snap.Remaining)
		})
	}
}
