package gate

import (
	"context"
	"encoding/json"
	"sync"

	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/pkg/kv"
)

// Plan mirrors the persisted subscription status of one install.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanPaid   Plan = "paid"
	PlanCustom Plan = "custom"
)

// UsageState is the persisted per-install record. Invariants:
// Plan == PlanCustom iff CustomCredential is non-empty; PaidUpgraded is
// set once by a successful identity upgrade and never cleared, so
// removing a custom credential falls back to paid rather than free;
// FreeActionsUsed only ever grows except through ResetUsage.
type UsageState struct {
	FreeActionsUsed  int    `json:"free_actions_used"`
	Plan             Plan   `json:"plan"`
	CustomCredential string `json:"custom_credential,omitempty"`
	PaidUpgraded     bool   `json:"paid_upgraded,omitempty"`
}

const usageKeyPrefix = "usage::"

// Ledger owns the persisted usage counters. All mutation goes through a
// single mutex-guarded read-modify-persist cycle: the keyed storage
// gives no transactional guarantee, so serialization happens here and
// two rapid hovers can never both consume the same free action.
type Ledger struct {
	store kv.Store
	mu    sync.Mutex
	log   logger.ILogger
}

func NewLedger(store kv.Store, log logger.ILogger) *Ledger {
	return &Ledger{store: store, log: log}
}

// State reads the install's record, defaulting to a fresh free-tier
// state on first contact.
func (l *Ledger) State(ctx context.Context, installID string) (*UsageState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked(ctx, installID)
}

// ConsumeFreeAction atomically increments the counter if it is still
// below ceiling. The second result is false when the tier is exhausted;
// the returned state reflects what was persisted.
func (l *Ledger) ConsumeFreeAction(ctx context.Context, installID string, ceiling int) (*UsageState, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.readLocked(ctx, installID)
	if err != nil {
		return nil, false, err
	}
	if state.FreeActionsUsed >= ceiling {
		return state, false, nil
	}

	state.FreeActionsUsed++
	if err := l.writeLocked(ctx, installID, state); err != nil {
		return nil, false, err
	}
	return state, true, nil
}

// SetCustomCredential stores or clears the personal credential and
// applies the plan transition: non-empty flips to custom, empty falls
// back to paid (if upgraded) or free.
func (l *Ledger) SetCustomCredential(ctx context.Context, installID, credential string) (*UsageState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.readLocked(ctx, installID)
	if err != nil {
		return nil, err
	}

	state.CustomCredential = credential
	if credential != "" {
		state.Plan = PlanCustom
	} else if state.PaidUpgraded {
		state.Plan = PlanPaid
	} else {
		state.Plan = PlanFree
	}

	if err := l.writeLocked(ctx, installID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// MarkPaidUpgrade records a successful identity upgrade. A custom
// credential keeps plan precedence if one is already set.
func (l *Ledger) MarkPaidUpgrade(ctx context.Context, installID string) (*UsageState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.readLocked(ctx, installID)
	if err != nil {
		return nil, err
	}

	state.PaidUpgraded = true
	if state.CustomCredential == "" {
		state.Plan = PlanPaid
	}

	if err := l.writeLocked(ctx, installID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ResetUsage zeroes the free-action counter. Plan and credential are
// untouched.
func (l *Ledger) ResetUsage(ctx context.Context, installID string) (*UsageState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.readLocked(ctx, installID)
	if err != nil {
		return nil, err
	}

	state.FreeActionsUsed = 0
	if err := l.writeLocked(ctx, installID, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (l *Ledger) readLocked(ctx context.Context, installID string) (*UsageState, error) {
	raw, found, err := l.store.Get(ctx, usageKeyPrefix+installID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &UsageState{Plan: PlanFree}, nil
	}

	var state UsageState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		l.log.Error("LEDGER", "Corrupt usage record, reinitializing", map[string]interface{}{
			"install_id": installID,
			"error":      err.Error(),
		})
		return &UsageState{Plan: PlanFree}, nil
	}
	if state.Plan == "" {
		state.Plan = PlanFree
	}
	return &state, nil
}

func (l *Ledger) writeLocked(ctx context.Context, installID string, state *UsageState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, usageKeyPrefix+installID, string(raw))
}
