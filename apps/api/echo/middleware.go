package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

const (
	contextTokenKey  = "userToken"
	contextClaimsKey = "userClaims"
)

func newJWTMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(auth.Claims),
	})
}

// cookieTokenMiddleware lets the token travel either as a bearer header or
// as the auth cookie; the header wins when both are present.
func cookieTokenMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				if cookie, err := ctx.Cookie(conf.Server.CookieName); err == nil && cookie.Value != "" {
					ctx.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+cookie.Value)
				}
			}
			return next(ctx)
		}
	}
}

// revocationMiddleware rejects tokens whose session has been signed out.
// It must run after the JWT middleware.
func revocationMiddleware(registry auth.SessionRegistry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			revoked, err := registry.IsRevoked(ctx.Request().Context(), claims.Id)
			if err != nil {
				return errors.Wrap(err, "checking session revocation")
			}
			if revoked {
				return errSessionRevoked
			}
			return next(ctx)
		}
	}
}

// resourceMiddleware enforces the access policy for a declared resource.
func resourceMiddleware(policy *auth.Policy, resource string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if err = policy.Allow(resource, claims.Role); err != nil {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// edgeGuardMiddleware intercepts requests to protected path prefixes
// before any handler executes. Browsers get a redirect to the sign-in
// surface rather than protected content; the verified claims are stashed
// for the handlers behind the guard.
func edgeGuardMiddleware(conf *core.Config, registry auth.SessionRegistry) echo.MiddlewareFunc {
	secret := []byte(conf.SecretKey)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			path := ctx.Request().URL.Path
			if !isProtectedPath(conf, path) {
				return next(ctx)
			}

			raw := extractToken(ctx, conf)
			if raw == "" {
				return ctx.Redirect(http.StatusSeeOther, "/login")
			}
			claims, err := auth.VerifyToken(raw, secret)
			if err != nil {
				return ctx.Redirect(http.StatusSeeOther, "/login")
			}
			if revoked, rErr := registry.IsRevoked(ctx.Request().Context(), claims.Id); rErr != nil || revoked {
				return ctx.Redirect(http.StatusSeeOther, "/login")
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func isProtectedPath(conf *core.Config, path string) bool {
	for _, prefix := range conf.Server.ProtectedPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// extractToken prefers the bearer header over the cookie.
func extractToken(ctx echo.Context, conf *core.Config) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := ctx.Cookie(conf.Server.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// getContextClaims recovers claims set by either the JWT middleware or the
// edge guard.
func getContextClaims(ctx echo.Context) (*auth.Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*auth.Claims); ok {
			return claims, nil
		}
	}
	if claims, ok := ctx.Get(contextClaimsKey).(*auth.Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

func setTokenCookie(ctx echo.Context, conf *core.Config, token string, ttl time.Duration) {
	ctx.SetCookie(&http.Cookie{
		Name:     conf.Server.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearTokenCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     conf.Server.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
