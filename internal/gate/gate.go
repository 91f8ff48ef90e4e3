package gate

import (
	"context"

	"ai-hovertip-be/internal/events"
	"ai-hovertip-be/internal/pkg/logger"
)

// Kind is the credential class of a requested action. Recognition runs
// locally and needs no credential; summarization calls the external
// completion backend and does.
type Kind string

const (
	KindRecognition   Kind = "recognition"
	KindSummarization Kind = "summarization"
)

// DenyReason explains a refused authorization.
type DenyReason string

const (
	ReasonExhaustedFreeTier           DenyReason = "EXHAUSTED_FREE_TIER"
	ReasonSubscriptionNeedsCredential DenyReason = "SUBSCRIPTION_NEEDS_CREDENTIAL"
	ReasonNoFallbackCredential        DenyReason = "NO_FALLBACK_CREDENTIAL"
)

// Snapshot is the usage view attached to every decision, proceed or
// deny, so the UI can always render remaining-count information.
// Remaining is -1 for unlimited plans.
type Snapshot struct {
	Plan      Plan `json:"plan"`
	Limit     int  `json:"limit"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
}

// Decision is the outcome of one authorization pass.
type Decision struct {
	Proceed    bool
	Credential string
	Reason     DenyReason
	Usage      Snapshot
}

// Gate is the usage-metered request gate every enrichment pipeline
// passes through. It wraps the ledger with the locally configured
// fallback credential and the free-tier ceiling.
type Gate struct {
	ledger             *Ledger
	ceiling            int
	fallbackCredential string
	log                logger.ILogger
	events             events.Publisher
}

func NewGate(ledger *Ledger, ceiling int, fallbackCredential string, log logger.ILogger, publisher events.Publisher) *Gate {
	return &Gate{
		ledger:             ledger,
		ceiling:            ceiling,
		fallbackCredential: fallbackCredential,
		log:                log,
		events:             publisher,
	}
}

// Ceiling returns the configured free-tier limit.
func (g *Gate) Ceiling() int {
	return g.ceiling
}

// Authorize decides whether one action may proceed and with which
// credential. Free-tier consumption persists before the decision is
// returned, so a rapid second request always observes the incremented
// count.
func (g *Gate) Authorize(ctx context.Context, installID string, kind Kind) (*Decision, error) {
	state, err := g.ledger.State(ctx, installID)
	if err != nil {
		return nil, err
	}

	// A personal credential bypasses metering entirely. Custom takes
	// precedence over paid for credential selection.
	if state.CustomCredential != "" {
		return &Decision{
			Proceed:    true,
			Credential: state.CustomCredential,
			Usage:      g.snapshot(state),
		}, nil
	}

	// Payment unlocks unlimited volume on a personal credential; it
	// does not grant access to the shared default credential.
	if state.Plan == PlanPaid {
		return &Decision{
			Reason: ReasonSubscriptionNeedsCredential,
			Usage:  g.snapshot(state),
		}, nil
	}

	if state.FreeActionsUsed >= g.ceiling {
		g.events.PublishTierExhausted(ctx, installID, state.FreeActionsUsed, g.ceiling)
		return &Decision{
			Reason: ReasonExhaustedFreeTier,
			Usage:  g.snapshot(state),
		}, nil
	}

	if kind == KindSummarization && g.fallbackCredential == "" {
		return &Decision{
			Reason: ReasonNoFallbackCredential,
			Usage:  g.snapshot(state),
		}, nil
	}

	state, consumed, err := g.ledger.ConsumeFreeAction(ctx, installID, g.ceiling)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// A concurrent request took the last free action between the
		// read above and the consume.
		g.events.PublishTierExhausted(ctx, installID, state.FreeActionsUsed, g.ceiling)
		return &Decision{
			Reason: ReasonExhaustedFreeTier,
			Usage:  g.snapshot(state),
		}, nil
	}

	snap := g.snapshot(state)
	g.events.PublishUsageUpdated(ctx, installID, string(snap.Plan), snap.Used, snap.Limit, snap.Remaining)
	g.log.Debug("GATE", "Free action consumed", map[string]interface{}{
		"install_id": installID,
		"used":       snap.Used,
		"remaining":  snap.Remaining,
	})

	credential := ""
	if kind == KindSummarization {
		credential = g.fallbackCredential
	}
	return &Decision{
		Proceed:    true,
		Credential: credential,
		Usage:      snap,
	}, nil
}

func (g *Gate) snapshot(state *UsageState) Snapshot {
	return SnapshotOf(state, g.ceiling)
}

// SnapshotOf derives the usage view for a ledger state against a
// ceiling. The settings surface reuses it outside the gate.
func SnapshotOf(state *UsageState, ceiling int) Snapshot {
	snap := Snapshot{
		Plan:  state.Plan,
		Limit: ceiling,
		Used:  state.FreeActionsUsed,
	}
	switch state.Plan {
	case PlanFree:
		snap.Remaining = ceiling - state.FreeActionsUsed
		if snap.Remaining < 0 {
			snap.Remaining = 0
		}
	default:
		snap.Remaining = -1
	}
	return snap
}
