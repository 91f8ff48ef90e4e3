// FILE: internal/service/install_service.go
package service

import (
	"context"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/pkg/logger"
)

type InstallService interface {
	Register(ctx context.Context, request *dto.RegisterInstallRequest) (*dto.RegisterInstallResponse, error)
}

type installService struct {
	logger logger.ILogger
}

func NewInstallService(log logger.ILogger) InstallService {
	return &installService{logger: log}
}

// Register issues (or re-issues) the install identity and its bearer
// token. A client presenting a known install id keeps it, so its usage
// ledger survives reinstallation.
func (s *installService) Register(ctx context.Context, request *dto.RegisterInstallRequest) (*dto.RegisterInstallResponse, error) {
	installId := request.InstallId
	if installId == "" {
		installId = uuid.New().String()
		s.logger.Info("INSTALL", "New install registered", map[string]interface{}{
			"install_id": installId,
		})
	}

	claims := jwt.MapClaims{
		"install_id": installId,
		"exp":        time.Now().Add(time.Hour * 24 * 30).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	secret := os.Getenv("JWT_SECRET")
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}

	return &dto.RegisterInstallResponse{
		InstallId: installId,
		Token:     signed,
	}, nil
}
