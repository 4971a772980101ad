package handler

import (
	"github.com/gofiber/fiber/v2"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/usecase"
)

type DashboardHandler struct {
	usecase usecase.DashboardUsecase
}

func NewDashboardHandler(usecase usecase.DashboardUsecase) *DashboardHandler {
	return &DashboardHandler{usecase: usecase}
}

// Redirect godoc
// @Summary Resolve the landing page for a role
// @Description Returns the route as JSON, or answers with a 302 when follow=true.
// @Tags dashboard
// @Produce json
// @Param role query string false "User role"
// @Param follow query bool false "Redirect instead of returning JSON"
// @Success 200 {object} entity.APIResponse
// @Success 302 "Redirect to the dashboard"
// @Router /api/v1/dashboard/redirect [get]
func (h *DashboardHandler) Redirect(c *fiber.Ctx) error {
	target := h.usecase.Redirect(c.Query("role"))

	if c.QueryBool("follow", false) {
		return c.Redirect(target.Route, fiber.StatusFound)
	}

	return c.JSON(entity.NewSuccessResponse(target, ""))
}
