// FILE: internal/service/settings_service.go
package service

import (
	"context"
	"strings"

	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/events"
	"ai-hovertip-be/internal/gate"
	"ai-hovertip-be/internal/pkg/logger"
)

type SettingsService interface {
	GetUsage(ctx context.Context, installId string) (*dto.UsageStatusResponse, error)
	SaveCredential(ctx context.Context, installId string, request *dto.SaveCredentialRequest) (*dto.SaveCredentialResponse, error)
	ResetUsage(ctx context.Context, installId string) (*dto.ResetUsageResponse, error)
}

type settingsService struct {
	ledger    *gate.Ledger
	ceiling   int
	publisher events.Publisher
	logger    logger.ILogger
}

func NewSettingsService(ledger *gate.Ledger, ceiling int, publisher events.Publisher, log logger.ILogger) SettingsService {
	return &settingsService{
		ledger:    ledger,
		ceiling:   ceiling,
		publisher: publisher,
		logger:    log,
	}
}

func (s *settingsService) GetUsage(ctx context.Context, installId string) (*dto.UsageStatusResponse, error) {
	state, err := s.ledger.State(ctx, installId)
	if err != nil {
		return nil, err
	}

	snap := gate.SnapshotOf(state, s.ceiling)
	return &dto.UsageStatusResponse{
		Plan:                  string(snap.Plan),
		FreeTierLimit:         snap.Limit,
		FreeTooltipsUsed:      snap.Used,
		FreeTooltipsRemaining: snap.Remaining,
		HasCustomCredential:   state.CustomCredential != "",
		UpgradeAvailable:      state.Plan == gate.PlanFree,
	}, nil
}

// SaveCredential stores or clears the personal API key. Clearing drops
// the install back to its account plan (paid if upgraded, free
// otherwise). A PLAN_CHANGED event goes out whenever the effective plan
// moves.
func (s *settingsService) SaveCredential(ctx context.Context, installId string, request *dto.SaveCredentialRequest) (*dto.SaveCredentialResponse, error) {
	before, err := s.ledger.State(ctx, installId)
	if err != nil {
		return nil, err
	}

	credential := strings.TrimSpace(request.Credential)
	state, err := s.ledger.SetCustomCredential(ctx, installId, credential)
	if err != nil {
		return nil, err
	}

	if state.Plan != before.Plan {
		s.publisher.PublishPlanChanged(ctx, installId, string(before.Plan), string(state.Plan))
	}
	s.logger.Info("SETTINGS", "Credential updated", map[string]interface{}{
		"install_id":     installId,
		"has_credential": credential != "",
		"plan":           string(state.Plan),
	})

	return &dto.SaveCredentialResponse{
		Plan:                string(state.Plan),
		HasCustomCredential: state.CustomCredential != "",
	}, nil
}

// ResetUsage zeroes the free-action counter. Exposed for support and
// for the local development console.
func (s *settingsService) ResetUsage(ctx context.Context, installId string) (*dto.ResetUsageResponse, error) {
	state, err := s.ledger.ResetUsage(ctx, installId)
	if err != nil {
		return nil, err
	}

	snap := gate.SnapshotOf(state, s.ceiling)
	s.publisher.PublishUsageUpdated(ctx, installId, string(snap.Plan), snap.Used, snap.Limit, snap.Remaining)

	return &dto.ResetUsageResponse{
		Plan:             string(state.Plan),
		FreeTooltipsUsed: state.FreeActionsUsed,
	}, nil
}
