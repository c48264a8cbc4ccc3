package controller

import (
	"ai-salesops-be/internal/dto"
	"ai-salesops-be/internal/pkg/serverutils"
	"ai-salesops-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPipelineController interface {
	RegisterRoutes(r fiber.Router, guard fiber.Handler)
	Leads(ctx *fiber.Ctx) error
	Opportunities(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	FollowUp(ctx *fiber.Ctx) error
	Dashboard(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
}

type pipelineController struct {
	service service.IPipelineService
}

func NewPipelineController(service service.IPipelineService) IPipelineController {
	return &pipelineController{service: service}
}

func (c *pipelineController) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	h := r.Group("/pipeline/v1", guard)
	h.Get("/leads", c.Leads)
	h.Get("/opportunities", c.Opportunities)
	h.Get("/dashboard", c.Dashboard)
	h.Post("/followup", c.FollowUp)
	h.Post("/refresh", c.Refresh)
	h.Get("/:kind/:id", c.Show)
}

func (c *pipelineController) rank(ctx *fiber.Ctx, kind string) error {
	var q dto.RankingQuery
	if err := ctx.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(q); err != nil {
		return err
	}

	res, err := c.service.Rank(ctx.UserContext(), kind, q.Limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rank "+res.Kind+"s", res))
}

// Leads returns open leads ordered by priority score.
// @Router /api/pipeline/v1/leads [get]
func (c *pipelineController) Leads(ctx *fiber.Ctx) error {
	return c.rank(ctx, "lead")
}

// Opportunities returns open opportunities ordered by conversion score.
// @Router /api/pipeline/v1/opportunities [get]
func (c *pipelineController) Opportunities(ctx *fiber.Ctx) error {
	return c.rank(ctx, "opportunity")
}

func (c *pipelineController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.GetRecord(ctx.UserContext(), ctx.Params("kind"), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get record", res))
}

func (c *pipelineController) FollowUp(ctx *fiber.Ctx) error {
	var req dto.FollowUpRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.FollowUp(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success generate follow-up", res))
}

// Dashboard aggregates the metric cards. ?top= bounds the top lists.
// @Router /api/pipeline/v1/dashboard [get]
func (c *pipelineController) Dashboard(ctx *fiber.Ctx) error {
	res, err := c.service.Dashboard(ctx.UserContext(), ctx.QueryInt("top", service.DefaultDashboardTop))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get dashboard", res))
}

func (c *pipelineController) Refresh(ctx *fiber.Ctx) error {
	var req dto.RefreshRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Refresh(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Refresh enqueued", res))
}
