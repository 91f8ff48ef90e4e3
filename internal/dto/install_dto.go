package dto

// RegisterInstallRequest may carry a previously issued install id so a
// reinstalled extension keeps its usage ledger. Empty means fresh.
type RegisterInstallRequest struct {
	InstallId string `json:"install_id" validate:"omitempty,uuid4"`
}

type RegisterInstallResponse struct {
	InstallId string `json:"install_id"`
	Token     string `json:"token"`
}

// UpgradeStatusResponse is returned alongside the consent URL so the
// options page can decide whether to show the upgrade button at all.
type UpgradeStatusResponse struct {
	Enabled    bool   `json:"enabled"`
	ConsentUrl string `json:"consent_url,omitempty"`
}

type UpgradeResultResponse struct {
	Plan  string `json:"plan"`
	Email string `json:"email,omitempty"`
}
