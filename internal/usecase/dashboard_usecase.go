package usecase

import (
	"strings"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
)

// DashboardTarget is where a signed-in user lands
type DashboardTarget struct {
	Role      string `json:"role"`
	RouteName string `json:"route_name"`
	Route     string `json:"route"`
}

type DashboardUsecase interface {
	// Redirect maps a role string to its landing route, unknown roles go to pricing
	Redirect(role string) *DashboardTarget
}

type dashboardUsecase struct {
	routes config.RoutesConfig
}

func NewDashboardUsecase(cfg *config.Config) DashboardUsecase {
	return &dashboardUsecase{routes: cfg.Routes}
}

func (u *dashboardUsecase) Redirect(role string) *DashboardTarget {
	normalized := strings.ToLower(strings.TrimSpace(role))
	target := &DashboardTarget{Role: normalized}

	switch normalized {
	case "admin":
		target.RouteName, target.Route = entity.RouteAdminDashboard, u.routes.AdminDashboard
	case "creator", "criador":
		target.RouteName, target.Route = entity.RouteCreatorDashboard, u.routes.CreatorDashboard
	case "subscriber", "assinante":
		target.RouteName, target.Route = entity.RouteSubscriberDashboard, u.routes.SubscriberDashboard
	default:
		target.RouteName, target.Route = entity.RoutePricing, u.routes.Pricing
	}
	return target
}
