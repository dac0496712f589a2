package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"weddingsite/internal/auth"
	"weddingsite/internal/errors"
	"weddingsite/internal/model"
	"weddingsite/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	resetURL    string
}

// NewAuthHandler creates a new auth handler. resetURL is where reset links
// land when the client does not name a page.
func NewAuthHandler(authService service.AuthService, resetURL string) *AuthHandler {
	return &AuthHandler{authService: authService, resetURL: resetURL}
}

// SignUpRequest represents a guest sign-up request.
type SignUpRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6"`
	FullName string         `json:"full_name" validate:"required"`
	Metadata model.Metadata `json:"metadata"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ResetRequest asks for a password reset link.
type ResetRequest struct {
	Email      string `json:"email" validate:"required,email"`
	RedirectTo string `json:"redirect_to" validate:"omitempty,url"`
}

// PasswordUpdateRequest completes a password reset.
type PasswordUpdateRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest merges data into the signed-in user's metadata.
type UpdateUserRequest struct {
	Metadata model.Metadata `json:"metadata" validate:"required"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         interface{} `json:"user,omitempty"`
}

// SignUp godoc
// @Summary Register a new guest
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "Sign-up data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	metadata := req.Metadata.Merge(model.Metadata{"full_name": strings.TrimSpace(req.FullName)})
	delete(metadata, "is_admin")
	delete(metadata, "role")

	account, err := h.authService.SignUp(c.Request().Context(), req.Email, req.Password, metadata)
	if err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "user registered successfully",
		"user":    account.Identity(),
	})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.Session
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusOK, session)
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusOK, AuthResponse{AccessToken: accessToken})
}

// Logout godoc
// @Summary Logout user
// @Description Drops the refresh token and revokes the bearer access token.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogoutRequest true "Refresh token"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken := ""
	if token, ok := c.Get("user").(*jwt.Token); ok {
		accessToken = token.Raw
	}

	if err := h.authService.SignOut(c.Request().Context(), req.RefreshToken, accessToken); err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// RequestReset godoc
// @Summary Send a password reset link
// @Description Always succeeds for well-formed addresses, whether or not an account exists.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetRequest true "Account email"
// @Success 202 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/password/reset [post]
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req ResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email, h.resetRedirect(req.RedirectTo)); err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "if the address is registered, a reset link is on its way",
	})
}

// resetRedirect keeps redirect_to only when it points at the site's own
// origin; reset links carry a live token.
func (h *AuthHandler) resetRedirect(requested string) string {
	if requested == "" {
		return h.resetURL
	}
	want, err := url.Parse(h.resetURL)
	if err != nil {
		return h.resetURL
	}
	got, err := url.Parse(requested)
	if err != nil || got.User != nil {
		return h.resetURL
	}
	if !strings.EqualFold(got.Scheme, want.Scheme) || !strings.EqualFold(got.Host, want.Host) {
		return h.resetURL
	}
	return requested
}

// UpdatePassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordUpdateRequest true "Reset token and new password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/password/update [post]
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req PasswordUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "password updated",
	})
}

// UpdateUser godoc
// @Summary Update the signed-in user's profile data
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateUserRequest true "Metadata to merge"
// @Success 200 {object} model.Identity
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/user [put]
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	var req UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return handleError(errors.ErrUnauthenticated)
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return handleError(errors.ErrUnauthenticated)
	}
	userID, err := claims.AccountID()
	if err != nil {
		return handleError(errors.ErrUnauthenticated)
	}

	// role flags are managed by the seed command only
	delete(req.Metadata, "is_admin")
	delete(req.Metadata, "role")

	identity, err := h.authService.UpdateUser(c.Request().Context(), userID, req.Metadata)
	if err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusOK, identity)
}
