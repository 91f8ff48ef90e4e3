package dto

// UsageStatusResponse is returned by GET /api/settings/v1/usage.
type UsageStatusResponse struct {
	Plan                  string `json:"plan"`
	FreeTierLimit         int    `json:"free_tier_limit"`
	FreeTooltipsUsed      int    `json:"free_tooltips_used"`
	FreeTooltipsRemaining int    `json:"free_tooltips_remaining"` // -1 = unlimited
	HasCustomCredential   bool   `json:"has_custom_credential"`
	UpgradeAvailable      bool   `json:"upgrade_available"`
}

// SaveCredentialRequest carries the user-supplied API credential.
// An empty credential clears the override and drops back to the
// account's plan.
type SaveCredentialRequest struct {
	Credential string `json:"credential" validate:"max=512"`
}

type SaveCredentialResponse struct {
	Plan                string `json:"plan"`
	HasCustomCredential bool   `json:"has_custom_credential"`
}

type ResetUsageResponse struct {
	Plan             string `json:"plan"`
	FreeTooltipsUsed int    `json:"free_tooltips_used"`
}
