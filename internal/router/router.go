package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"weddingsite/internal/auth"
	"weddingsite/internal/errors"
	"weddingsite/internal/guard"
	"weddingsite/internal/handler"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	RSVP    *handler.RSVPHandler
	Message *handler.MessageHandler
	Admin   *handler.AdminHandler
	Media   *handler.MediaHandler
	Site    *handler.SiteHandler
	Session *handler.SessionHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, log zerolog.Logger, jwtSecret []byte, g *guard.Guard, h Handlers) {
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/signup", h.Auth.SignUp)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/password/reset", h.Auth.RequestReset)
	api.POST("/auth/password/update", h.Auth.UpdatePassword)
	api.GET("/event", h.Site.Event)
	api.GET("/session/stream", h.Session.Stream)

	// Account routes (require a valid access JWT)
	account := api.Group("/auth", echojwt.WithConfig(echojwt.Config{
		SigningKey:    jwtSecret,
		TokenLookup:   "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return new(auth.Claims) },
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthenticated()
		},
	}), requireAccessToken)
	account.POST("/logout", h.Auth.Logout)
	account.PUT("/user", h.Auth.UpdateUser)

	// Guest routes (signed-in identity). The guard is attached per route so
	// unknown /api paths still answer 404.
	signedIn := g.Authenticated()
	api.GET("/session", h.Session.Current, signedIn)

	api.GET("/rsvp", h.RSVP.Get, signedIn)
	api.GET("/rsvp/form", h.RSVP.Form, signedIn)
	api.POST("/rsvp", h.RSVP.Submit, signedIn)
	api.PUT("/rsvp", h.RSVP.Update, signedIn)
	api.POST("/rsvp/guests", h.RSVP.AddGuests, signedIn)

	api.GET("/messages", h.Message.Wall, signedIn)
	api.POST("/messages", h.Message.Submit, signedIn)

	api.GET("/media/picker", h.Media.Picker, signedIn)
	api.POST("/media/upload-name", h.Media.UploadName, signedIn)
	api.GET("/media/:folder", h.Media.List, signedIn)

	// Admin routes
	admin := api.Group("/admin", g.Admin())
	admin.GET("/rsvps", h.Admin.List)
	admin.GET("/rsvps/export", h.Admin.Export)
	admin.PUT("/rsvps/:id", h.Admin.Update)
	admin.DELETE("/rsvps/:id", h.Admin.Delete)
}

// requireAccessToken rejects refresh tokens presented as bearer credentials.
func requireAccessToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return unauthenticated()
		}
		claims, ok := token.Claims.(*auth.Claims)
		if !ok || !claims.IsAccess() {
			return unauthenticated()
		}
		return next(c)
	}
}

func unauthenticated() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "invalid or expired token",
		Code:  "UNAUTHENTICATED",
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
