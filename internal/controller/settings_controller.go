package controller

import (
	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/pkg/serverutils"
	"ai-hovertip-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISettingsController interface {
	RegisterRoutes(r fiber.Router)
	GetUsage(ctx *fiber.Ctx) error
	SaveCredential(ctx *fiber.Ctx) error
	ResetUsage(ctx *fiber.Ctx) error
}

type settingsController struct {
	settingsService service.SettingsService
}

func NewSettingsController(settingsService service.SettingsService) ISettingsController {
	return &settingsController{
		settingsService: settingsService,
	}
}

func (c *settingsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/settings/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("usage", c.GetUsage)
	h.Put("credential", c.SaveCredential)
	h.Post("usage/reset", c.ResetUsage)
}

func (c *settingsController) GetUsage(ctx *fiber.Ctx) error {
	installId := ctx.Locals("install_id").(string)

	res, err := c.settingsService.GetUsage(ctx.Context(), installId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get usage status", res))
}

func (c *settingsController) SaveCredential(ctx *fiber.Ctx) error {
	installId := ctx.Locals("install_id").(string)

	var req dto.SaveCredentialRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.settingsService.SaveCredential(ctx.Context(), installId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success save credential", res))
}

func (c *settingsController) ResetUsage(ctx *fiber.Ctx) error {
	installId := ctx.Locals("install_id").(string)

	res, err := c.settingsService.ResetUsage(ctx.Context(), installId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reset usage", res))
}
