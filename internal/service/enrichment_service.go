// FILE: internal/service/enrichment_service.go
// Service orchestrating the two tooltip enrichment pipelines
package service

import (
	"context"
	"fmt"
	"strings"

	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/gate"
	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/pkg/channel"
	"ai-hovertip-be/pkg/llm"
	"ai-hovertip-be/pkg/ocr"
)

const summarizePrompt = "Summarize the following content in 1-2 short, plain sentences. " +
	"Answer with the summary only, no preamble.\n\nContent:\n%s"

type EnrichmentService interface {
	Enrich(ctx context.Context, installId string, request *dto.EnrichRequest) (*dto.EnrichResponse, error)
}

type enrichmentService struct {
	gate       *gate.Gate
	recognizer ocr.Recognizer
	provider   llm.LLMProvider
	logger     logger.ILogger
}

func NewEnrichmentService(g *gate.Gate, recognizer ocr.Recognizer, provider llm.LLMProvider, log logger.ILogger) EnrichmentService {
	return &enrichmentService{
		gate:       g,
		recognizer: recognizer,
		provider:   provider,
		logger:     log,
	}
}

// Enrich authorizes one action against the usage gate, then runs the
// matching pipeline. Every response carries the usage snapshot, denials
// included, so the tooltip footer never goes stale.
func (s *enrichmentService) Enrich(ctx context.Context, installId string, request *dto.EnrichRequest) (*dto.EnrichResponse, error) {
	action := channel.Action(request.Action)

	kind := gate.KindSummarization
	if action == channel.ActionOcrImage {
		kind = gate.KindRecognition
	}

	decision, err := s.gate.Authorize(ctx, installId, kind)
	if err != nil {
		s.logger.Error("ENRICH", "Authorization failed", map[string]interface{}{
			"install_id": installId,
			"error":      err.Error(),
		})
		return nil, err
	}

	if !decision.Proceed {
		return denialResponse(decision), nil
	}

	result, err := s.runPipeline(ctx, action, request.Data, decision.Credential)
	if err != nil {
		s.logger.Error("ENRICH", "Pipeline failed", map[string]interface{}{
			"install_id": installId,
			"action":     request.Action,
			"error":      err.Error(),
		})
		// The provider's own message goes back verbatim; the tooltip
		// shows it as-is.
		return &dto.EnrichResponse{
			Success:   false,
			Error:     strings.TrimSpace(err.Error()),
			ErrorCode: string(channel.CodeUnknown),
			UsageInfo: usageInfoOf(decision.Usage),
		}, nil
	}

	return &dto.EnrichResponse{
		Success:   true,
		Result:    result,
		UsageInfo: usageInfoOf(decision.Usage),
	}, nil
}

func (s *enrichmentService) runPipeline(ctx context.Context, action channel.Action, data, credential string) (string, error) {
	switch action {
	case channel.ActionOcrImage:
		return s.recognizer.Recognize(ctx, data)
	case channel.ActionSummarizeText:
		opts := []llm.Option{llm.WithTemperature(0.3)}
		if credential != "" {
			opts = append(opts, llm.WithCredential(credential))
		}
		return s.provider.Generate(ctx, fmt.Sprintf(summarizePrompt, data), opts...)
	default:
		return "", fmt.Errorf("unknown action: %s", action)
	}
}

// denialResponse maps internal deny reasons onto the wire error codes.
// Both credential-shaped denials collapse to CREDENTIAL_REQUIRED; the
// distinction only matters for the message text.
func denialResponse(decision *gate.Decision) *dto.EnrichResponse {
	resp := &dto.EnrichResponse{
		Success:   false,
		UsageInfo: usageInfoOf(decision.Usage),
	}
	switch decision.Reason {
	case gate.ReasonExhaustedFreeTier:
		resp.ErrorCode = string(channel.CodeExhaustedFreeTier)
		resp.Error = "Free tier exhausted. Add your own API key or upgrade to continue."
	case gate.ReasonSubscriptionNeedsCredential:
		resp.ErrorCode = string(channel.CodeCredentialRequired)
		resp.Error = "Your plan is active. Add your own API key in settings to continue."
	case gate.ReasonNoFallbackCredential:
		resp.ErrorCode = string(channel.CodeCredentialRequired)
		resp.Error = "No API key is configured. Add your own API key in settings."
	default:
		resp.ErrorCode = string(channel.CodeUnknown)
		resp.Error = "Request was denied."
	}
	return resp
}

func usageInfoOf(snap gate.Snapshot) dto.UsageInfoDTO {
	return dto.UsageInfoDTO{
		Plan:                  string(snap.Plan),
		FreeTierLimit:         snap.Limit,
		FreeTooltipsRemaining: snap.Remaining,
		FreeTooltipsUsed:      snap.Used,
	}
}
