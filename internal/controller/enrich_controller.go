package controller

import (
	"ai-hovertip-be/internal/dto"
	"ai-hovertip-be/internal/pkg/serverutils"
	"ai-hovertip-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEnrichController interface {
	RegisterRoutes(r fiber.Router)
	Enrich(ctx *fiber.Ctx) error
}

type enrichController struct {
	enrichmentService service.EnrichmentService
}

func NewEnrichController(enrichmentService service.EnrichmentService) IEnrichController {
	return &enrichController{
		enrichmentService: enrichmentService,
	}
}

func (c *enrichController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/enrich/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Enrich)
}

// Enrich answers with the raw channel shape rather than the standard
// envelope: denials are HTTP 200 with success=false so the client can
// read the error code and usage snapshot from one place.
func (c *enrichController) Enrich(ctx *fiber.Ctx) error {
	installId := ctx.Locals("install_id").(string)

	var req dto.EnrichRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.enrichmentService.Enrich(ctx.Context(), installId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}
