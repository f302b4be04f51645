package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

type userApi struct {
	svc      user.ServiceInterface
	validate *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	policy *auth.Policy,
	svc user.ServiceInterface,
	registry auth.SessionRegistry,
	validate *validator.Validate,
) {
	api := userApi{svc: svc, validate: validate}

	ug := g.Group("/auth/users", jwt, revocationMiddleware(registry), resourceMiddleware(policy, auth.ResourceUsers))
	ug.GET("", api.query)
	ug.GET("/:id", api.retrieve)
	ug.PUT("/:id/role", api.setRole)
}

// Handlers

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) setRole(ctx echo.Context) error {
	var data user.RoleUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RoleUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// callers cannot grant a role above their own
	if data.Role.Priority() > claims.Role.Priority() {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "not enough rights to set this role"})
	}

	usr, err := api.svc.SetRole(ctx.Request().Context(), ctx.Param("id"), data.Role)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "setting user role")
	}
	return ctx.JSON(http.StatusOK, usr)
}
