package channel

import "context"

// Action is the enrichment operation requested from the broker.
type Action string

const (
	ActionOcrImage      Action = "ocr_image"
	ActionSummarizeText Action = "summarize_text"
)

// ErrorCode classifies application-level broker failures. Transport
// failures (no response at all) surface as a Channel error instead and
// map to CodeBrokerUnavailable on the rendering side.
type ErrorCode string

const (
	CodeExhaustedFreeTier  ErrorCode = "EXHAUSTED_FREE_TIER"
	CodeCredentialRequired ErrorCode = "CREDENTIAL_REQUIRED"
	CodeBrokerUnavailable  ErrorCode = "BROKER_UNAVAILABLE"
	CodeUnknown            ErrorCode = "UNKNOWN"
)

type Request struct {
	Action Action `json:"action"`
	Data   string `json:"data"`
}

// UsageInfo travels with every response, success or not, so the tooltip
// can always render remaining-count information.
type UsageInfo struct {
	Plan                  string `json:"plan"`
	FreeTierLimit         int    `json:"free_tier_limit"`
	FreeTooltipsRemaining int    `json:"free_tooltips_remaining"` // -1 = unlimited
	FreeTooltipsUsed      int    `json:"free_tooltips_used"`
}

type Response struct {
	Success   bool      `json:"success"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	UsageInfo UsageInfo `json:"usage_info"`
}

// Channel is the content-to-broker request/response contract. A non-nil
// error means the channel itself was unreachable; application failures
// come back inside the Response.
type Channel interface {
	Request(ctx context.Context, req *Request) (*Response, error)
}
