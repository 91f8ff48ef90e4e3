// FILE: internal/service/upgrade_service.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"ai-hovertip-be/internal/config"
	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/events"
	"ai-hovertip-be/internal/gate"
)

// IUpgradeService runs the identity-based plan upgrade. Verifying a
// Google identity flips the install to the paid plan; no checkout is
// involved.
type IUpgradeService interface {
	Enabled() bool
	GetUpgradeStatus(installId string) (*dto.UpgradeStatusResponse, error)
	HandleCallback(ctx context.Context, state string, code string) (*dto.UpgradeResultResponse, error)
}

type upgradeService struct {
	ledger     *gate.Ledger
	publisher  events.Publisher
	googleConf *oauth2.Config
}

// stateClaims travels through the OAuth state parameter so the callback
// knows which install to upgrade.
type stateClaims struct {
	InstallId string `json:"install_id"`
	Nonce     string `json:"nonce"`
}

func NewUpgradeService(ledger *gate.Ledger, publisher events.Publisher, google config.GoogleOAuthConfig) IUpgradeService {
	conf := &oauth2.Config{
		ClientID:     google.ClientID,
		ClientSecret: google.ClientSecret,
		RedirectURL:  google.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: googleoauth.Endpoint,
	}

	if conf.ClientID != "" {
		log.Printf("[Upgrade Service] Initialized with:")
		log.Printf("  - Client ID: %s", conf.ClientID[:min(10, len(conf.ClientID))]+"...")
		log.Printf("  - Redirect URL: %s", conf.RedirectURL)
	} else {
		log.Printf("[Upgrade Service] No Google client configured, upgrade disabled")
	}

	return &upgradeService{
		ledger:     ledger,
		publisher:  publisher,
		googleConf: conf,
	}
}

// Enabled reports whether a Google OAuth client is configured. Without
// one the upgrade surface stays reachable but answers enabled=false.
func (s *upgradeService) Enabled() bool {
	return s.googleConf.ClientID != ""
}

func (s *upgradeService) GetUpgradeStatus(installId string) (*dto.UpgradeStatusResponse, error) {
	if !s.Enabled() {
		return &dto.UpgradeStatusResponse{Enabled: false}, nil
	}

	b := make([]byte, 16)
	rand.Read(b)
	raw, err := json.Marshal(stateClaims{
		InstallId: installId,
		Nonce:     base64.RawURLEncoding.EncodeToString(b),
	})
	if err != nil {
		return nil, err
	}
	state := base64.RawURLEncoding.EncodeToString(raw)

	return &dto.UpgradeStatusResponse{
		Enabled:    true,
		ConsentUrl: s.googleConf.AuthCodeURL(state),
	}, nil
}

func (s *upgradeService) HandleCallback(ctx context.Context, state string, code string) (*dto.UpgradeResultResponse, error) {
	if !s.Enabled() {
		return nil, errors.New("upgrade is not enabled")
	}

	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		log.Printf("[Upgrade Service] ERROR - Invalid state: %v", err)
		return nil, errors.New("invalid state")
	}
	var claims stateClaims
	if err := json.Unmarshal(raw, &claims); err != nil || claims.InstallId == "" {
		log.Printf("[Upgrade Service] ERROR - Malformed state payload")
		return nil, errors.New("invalid state")
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		log.Printf("[Upgrade Service] ERROR - Code exchange failed: %v", err)
		return nil, fmt.Errorf("code exchange failed: %v", err)
	}
	log.Printf("[Upgrade Service] ✅ Successfully exchanged code for access token")

	// Get user info from Google
	userInfoURL := "https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken
	resp, err := http.Get(userInfoURL)
	if err != nil {
		log.Printf("[Upgrade Service] ERROR - Failed getting user info: %v", err)
		return nil, fmt.Errorf("failed getting user info: %v", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading response: %v", err)
	}

	var googleUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.Unmarshal(content, &googleUser); err != nil {
		log.Printf("[Upgrade Service] ERROR - Failed to parse user info: %v", err)
		return nil, err
	}
	if !googleUser.VerifiedEmail {
		log.Printf("[Upgrade Service] ERROR - Email not verified: %s", googleUser.Email)
		return nil, errors.New("email is not verified")
	}
	log.Printf("[Upgrade Service] ✅ Verified identity: %s", googleUser.Email)

	before, err := s.ledger.State(ctx, claims.InstallId)
	if err != nil {
		return nil, err
	}

	after, err := s.ledger.MarkPaidUpgrade(ctx, claims.InstallId)
	if err != nil {
		log.Printf("[Upgrade Service] ERROR - Failed to persist upgrade: %v", err)
		return nil, err
	}

	if after.Plan != before.Plan {
		s.publisher.PublishPlanChanged(ctx, claims.InstallId, string(before.Plan), string(after.Plan))
	}
	log.Printf("[Upgrade Service] ✅ Install %s upgraded to plan: %s", claims.InstallId, after.Plan)

	return &dto.UpgradeResultResponse{
		Plan:  string(after.Plan),
		Email: googleUser.Email,
	}, nil
}
