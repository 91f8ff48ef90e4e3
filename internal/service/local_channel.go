package service

import (
	"context"

	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/pkg/channel"
)

// LocalChannel adapts the enrichment service to the channel contract so
// the dispatcher can run in-process, without an HTTP hop. Used by the
// simulation binary and the tests.
type LocalChannel struct {
	enrichment EnrichmentService
	installId  string
}

func NewLocalChannel(enrichment EnrichmentService, installId string) *LocalChannel {
	return &LocalChannel{
		enrichment: enrichment,
		installId:  installId,
	}
}

func (c *LocalChannel) Request(ctx context.Context, req *channel.Request) (*channel.Response, error) {
	resp, err := c.enrichment.Enrich(ctx, c.installId, &dto.EnrichRequest{
		Action: string(req.Action),
		Data:   req.Data,
	})
	if err != nil {
		return nil, err
	}

	return &channel.Response{
		Success:   resp.Success,
		Result:    resp.Result,
		Error:     resp.Error,
		ErrorCode: channel.ErrorCode(resp.ErrorCode),
		UsageInfo: channel.UsageInfo{
			Plan:                  resp.UsageInfo.Plan,
			FreeTierLimit:         resp.UsageInfo.FreeTierLimit,
			FreeTooltipsRemaining: resp.UsageInfo.FreeTooltipsRemaining,
			FreeTooltipsUsed:      resp.UsageInfo.FreeTooltipsUsed,
		},
	}, nil
}
