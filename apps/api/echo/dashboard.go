package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

// dashboardApi serves the role-namespaced dashboard surface. All routes
// here sit behind the edge guard; handlers can count on verified claims
// being in the context.
type dashboardApi struct {
	policy *auth.Policy
}

func registerDashboardAPI(g *echo.Group, policy *auth.Policy) {
	api := dashboardApi{policy: policy}
	g.GET("/dashboard", api.home)
	g.GET("/dashboard/:namespace", api.namespace)
	g.GET("/unauthorized", api.unauthorized)
}

// Handlers

// home lands signed-in users on their role's namespace.
func (api *dashboardApi) home(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return ctx.Redirect(http.StatusSeeOther, auth.HomePath(claims.Role))
}

func (api *dashboardApi) namespace(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ns := ctx.Param("namespace")
	if err = api.policy.AllowNamespace(ns, claims.Role); err != nil {
		if _, known := api.policy.NamespaceRole(ns); !known {
			return ctx.Redirect(http.StatusSeeOther, "/unauthorized")
		}
		// a real namespace that just isn't theirs; send them home
		return ctx.Redirect(http.StatusSeeOther, auth.HomePath(claims.Role))
	}
	if ns != auth.HomeNamespace(claims.Role) && !api.policy.IsElevated(ns, claims.Role) {
		return ctx.Redirect(http.StatusSeeOther, auth.HomePath(claims.Role))
	}

	return ctx.JSON(http.StatusOK, DashboardResponse{
		Namespace: ns,
		Identity:  claims.Identity(),
		Home:      auth.HomePath(claims.Role),
	})
}

func (api *dashboardApi) unauthorized(ctx echo.Context) error {
	resp := UnauthorizedResponse{
		Error:   "you do not have access to this page",
		Home:    "/login",
		SignOut: "/auth/session",
	}
	if claims, err := getContextClaims(ctx); err == nil {
		resp.Home = auth.HomePath(claims.Role)
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	DashboardResponse struct {
		Namespace string    `json:"namespace"`
		Identity  user.User `json:"identity"`
		Home      string    `json:"home"`
	}

	UnauthorizedResponse struct {
		Error   string `json:"error"`
		Home    string `json:"home"`
		SignOut string `json:"sign_out"`
	}
)
