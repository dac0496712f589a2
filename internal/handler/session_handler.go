package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"weddingsite/internal/guard"
	"weddingsite/internal/model"
	"weddingsite/internal/role"
	"weddingsite/internal/session"
)

// SessionHandler exposes the caller's session and a live stream of access
// decisions for a page.
type SessionHandler struct {
	client session.Client
	hub    *session.Hub
	roles  guard.RoleSource
	paths  guard.Paths
	log    zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(client session.Client, hub *session.Hub, roles guard.RoleSource, paths guard.Paths, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{client: client, hub: hub, roles: roles, paths: paths, log: log}
}

// SessionResponse is the signed-in user and their role.
type SessionResponse struct {
	User *model.Identity `json:"user"`
	Role role.Role       `json:"role"`
}

// Current godoc
// @Summary Current user and role
// @Tags session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 401 {object} guard.DeniedResponse
// @Router /session [get]
func (h *SessionHandler) Current(c echo.Context) error {
	identity := guard.IdentityFrom(c)
	return c.JSON(http.StatusOK, SessionResponse{
		User: identity,
		Role: h.roles.Resolve(c.Request().Context(), identity),
	})
}

// Stream godoc
// @Summary Stream access decisions for a page
// @Description Server-sent events. The first decision is always "checking"; a new one follows every sign-in, sign-out, refresh or user update.
// @Tags session
// @Produce text/event-stream
// @Param path query string true "Page being guarded"
// @Param admin query bool false "Page requires the admin role; implied for /admin paths"
// @Param access_token query string false "Access token, for clients that cannot set headers"
// @Success 200 {object} guard.Decision
// @Router /session/stream [get]
func (h *SessionHandler) Stream(c echo.Context) error {
	location := c.QueryParam("path")
	if location == "" {
		location = "/"
	}
	requireAdmin := c.QueryParam("admin") == "true" || strings.HasPrefix(location, "/admin")

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	resolver := session.NewResolver(h.client, h.hub, guard.TokenFrom(c), h.log)
	defer resolver.Close()

	emit := func(d guard.Decision) error {
		payload, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "event: decision\ndata: %s\n\n", payload); err != nil {
			return err
		}
		res.Flush()
		return nil
	}

	err := guard.Watch(c.Request().Context(), resolver, h.roles, h.paths, location, requireAdmin, emit)
	if err != nil {
		h.log.Debug().Err(err).Str("path", location).Msg("decision stream closed")
	}
	return nil
}
