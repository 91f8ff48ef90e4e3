// FILE: internal/dto/enrich_dto.go
// DTOs for the tooltip enrichment endpoint
package dto

// EnrichRequest mirrors the channel request shape: one action plus its
// payload (image locator for ocr_image, raw text for summarize_text).
type EnrichRequest struct {
	Action string `json:"action" validate:"required,oneof=ocr_image summarize_text"`
	Data   string `json:"data" validate:"required"`
}

// UsageInfoDTO is attached to every enrichment response, success or
// denial, so the caller can render the footer without a second call.
type UsageInfoDTO struct {
	Plan                  string `json:"plan"`
	FreeTierLimit         int    `json:"free_tier_limit"`
	FreeTooltipsRemaining int    `json:"free_tooltips_remaining"` // -1 = unlimited
	FreeTooltipsUsed      int    `json:"free_tooltips_used"`
}

type EnrichResponse struct {
	Success   bool         `json:"success"`
	Result    string       `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
	UsageInfo UsageInfoDTO `json:"usage_info"`
}
