// FILE: internal/controller/upgrade_controller.go
package controller

import (
	"log"

	"ai-hovertip-be/internal/pkg/serverutils"
	"ai-hovertip-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUpgradeController interface {
	RegisterRoutes(r fiber.Router)
	Status(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
}

type upgradeController struct {
	service service.IUpgradeService
}

func NewUpgradeController(service service.IUpgradeService) IUpgradeController {
	return &upgradeController{service: service}
}

func (c *upgradeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/upgrade/v1")
	// The callback arrives from Google's redirect, browser-side, so it
	// cannot carry the install token.
	h.Get("callback", c.Callback)
	h.Get("status", serverutils.JwtMiddleware, c.Status)
}

func (c *upgradeController) Status(ctx *fiber.Ctx) error {
	installId := ctx.Locals("install_id").(string)

	res, err := c.service.GetUpgradeStatus(installId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get upgrade status", res))
}

func (c *upgradeController) Callback(ctx *fiber.Ctx) error {
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" {
		log.Printf("[Upgrade] ERROR - Missing authorization code")
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Missing code"))
	}

	res, err := c.service.HandleCallback(ctx.Context(), state, code)
	if err != nil {
		log.Printf("[Upgrade] ERROR - HandleCallback failed: %v", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	log.Printf("[Upgrade] ✅ Upgrade completed for plan: %s", res.Plan)

	// The extension polls upgrade status; a plain confirmation page is
	// enough here.
	return ctx.JSON(serverutils.SuccessResponse("Upgrade complete. You can close this tab.", res))
}
