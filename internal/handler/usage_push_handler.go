package handler

import (
	"os"

	"ai-hovertip-be/internal/pkg/logger"
	internalWS "ai-hovertip-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UsagePushHandler upgrades install connections onto the usage hub so
// quota changes reach open pages without polling.
type UsagePushHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewUsagePushHandler(hub *internalWS.Hub, log logger.ILogger) *UsagePushHandler {
	return &UsagePushHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *UsagePushHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/usage/v1/ws", h.ServeWs)
}

// ServeWs handles websocket requests from the peer.
func (h *UsagePushHandler) ServeWs(c *fiber.Ctx) error {
	// 1. Get Token source
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	// 2. Parse JWT with the same secret as the REST middleware
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		h.logger.Warn("UsagePushHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	// 3. Extract InstallID from Claim
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	installIDStr, ok := claims["install_id"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing install_id"})
	}

	if _, err := uuid.Parse(installIDStr); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid install ID format in token"})
	}

	// Upgrade via Fiber WebSocket Middleware
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("UsagePushHandler", "Starting WebSocket session", map[string]interface{}{"install_id": installIDStr})
			internalWS.ServeWs(h.hub, conn, installIDStr)
			h.logger.Info("UsagePushHandler", "WebSocket session ended", map[string]interface{}{"install_id": installIDStr})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
