package guard

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"weddingsite/internal/model"
	"weddingsite/internal/role"
	"weddingsite/internal/session"
)

const (
	identityKey = "identity"
	roleKey     = "role"

	// AccessTokenCookie carries the access token for browser navigations.
	AccessTokenCookie = "access_token"
)

// DeniedResponse is returned to API callers that may not proceed.
type DeniedResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RedirectTo string `json:"redirect_to"`
}

// Guard evaluates every request it wraps.
type Guard struct {
	client session.Client
	roles  RoleSource
	paths  Paths
	log    zerolog.Logger
}

// New creates a guard.
func New(client session.Client, roles RoleSource, paths Paths, log zerolog.Logger) *Guard {
	return &Guard{client: client, roles: roles, paths: paths, log: log}
}

// Paths returns the redirect targets.
func (g *Guard) Paths() Paths {
	return g.paths
}

// Authenticated admits any signed-in identity.
func (g *Guard) Authenticated() echo.MiddlewareFunc {
	return g.require(false)
}

// Admin admits only identities that resolve to the admin role.
func (g *Guard) Admin() echo.MiddlewareFunc {
	return g.require(true)
}

func (g *Guard) require(requireAdmin bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			resolver := session.NewResolver(g.client, nil, TokenFrom(c), g.log)
			defer resolver.Close()
			resolver.Init(ctx)

			in := Input{
				Identity:     resolver.CurrentUser(),
				RequireAdmin: requireAdmin,
				Role:         role.User,
				Location:     c.Request().URL.RequestURI(),
			}
			if in.Identity != nil && requireAdmin {
				in.Role = g.roles.Resolve(ctx, in.Identity)
			}

			d := g.paths.Evaluate(in)
			if d.State != Allowed {
				return g.deny(c, d, in.Identity == nil)
			}

			c.Set(identityKey, in.Identity)
			c.Set(roleKey, in.Role)
			return next(c)
		}
	}
}

func (g *Guard) deny(c echo.Context, d Decision, unauthenticated bool) error {
	if isNavigation(c.Request()) {
		return c.Redirect(http.StatusFound, d.To)
	}
	if unauthenticated {
		return c.JSON(http.StatusUnauthorized, DeniedResponse{
			Error:      "authentication required",
			Code:       "UNAUTHENTICATED",
			RedirectTo: d.To,
		})
	}
	return c.JSON(http.StatusForbidden, DeniedResponse{
		Error:      "admin role required",
		Code:       "FORBIDDEN",
		RedirectTo: d.To,
	})
}

func isNavigation(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

// TokenFrom extracts the access token from the Authorization header, the
// access_token cookie, or the access_token query parameter (EventSource
// clients cannot set headers).
func TokenFrom(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return c.QueryParam(AccessTokenCookie)
}

// IdentityFrom returns the identity admitted by the guard.
func IdentityFrom(c echo.Context) *model.Identity {
	identity, _ := c.Get(identityKey).(*model.Identity)
	return identity
}

// RoleFrom returns the role resolved by the guard. Only admin routes resolve
// it; elsewhere it is role.User.
func RoleFrom(c echo.Context) role.Role {
	if r, ok := c.Get(roleKey).(role.Role); ok {
		return r
	}
	return role.User
}
