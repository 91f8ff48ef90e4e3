package controller

import (
	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/pkg/serverutils"
	"ai-hovertip-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IInstallController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
}

type installController struct {
	installService service.InstallService
}

func NewInstallController(installService service.InstallService) IInstallController {
	return &installController{
		installService: installService,
	}
}

// Registration is the one unauthenticated route: it is where the token
// comes from.
func (c *installController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/install/v1")
	h.Post("register", c.Register)
}

func (c *installController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterInstallRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.installService.Register(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success register install", res))
}
