package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"weddingsite/internal/errors"
	"weddingsite/internal/guard"
	"weddingsite/internal/service"
)

// RSVPHandler handles the guest's own RSVP.
type RSVPHandler struct {
	rsvpService service.RSVPService
}

// NewRSVPHandler creates a new RSVP handler.
func NewRSVPHandler(rsvpService service.RSVPService) *RSVPHandler {
	return &RSVPHandler{rsvpService: rsvpService}
}

// SubmitRequest is one submission of the RSVP page.
type SubmitRequest struct {
	Record service.RSVPDraft    `json:"record"`
	Guests []service.GuestDraft `json:"guests"`
}

// GuestsRequest adds RSVPs for people without an account.
type GuestsRequest struct {
	Guests []service.GuestDraft `json:"guests" validate:"required,min=1"`
}

// SubmitResponse reports what a submission wrote. Error is set when some
// on-behalf guests could not be saved.
type SubmitResponse struct {
	service.SubmitResult
	Error string `json:"error,omitempty"`
}

// Get godoc
// @Summary Get the signed-in guest's RSVP
// @Tags rsvp
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.RSVP
// @Failure 401 {object} guard.DeniedResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /rsvp [get]
func (h *RSVPHandler) Get(c echo.Context) error {
	rec, err := h.rsvpService.LoadForIdentity(c.Request().Context(), guard.IdentityFrom(c))
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Form godoc
// @Summary Get the RSVP page state
// @Description Returns the existing record in view mode, or a create draft with the account email locked.
// @Tags rsvp
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.RSVPForm
// @Failure 401 {object} guard.DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /rsvp/form [get]
func (h *RSVPHandler) Form(c echo.Context) error {
	form, err := h.rsvpService.Form(c.Request().Context(), guard.IdentityFrom(c))
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, form)
}

// Submit godoc
// @Summary Submit the RSVP page
// @Description Creates or updates the guest's own record, then adds any on-behalf guests in order.
// @Tags rsvp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitRequest true "Own record and optional guests"
// @Success 200 {object} SubmitResponse
// @Success 207 {object} SubmitResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} guard.DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /rsvp [post]
func (h *RSVPHandler) Submit(c echo.Context) error {
	var req SubmitRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.rsvpService.Submit(c.Request().Context(), guard.IdentityFrom(c), req.Record, req.Guests)
	if err != nil {
		if result == nil {
			return handleError(err)
		}
		return c.JSON(http.StatusMultiStatus, SubmitResponse{
			SubmitResult: *result,
			Error:        errors.MapErrorToHTTP(err).Message,
		})
	}
	return c.JSON(http.StatusOK, SubmitResponse{SubmitResult: *result})
}

// Update godoc
// @Summary Update the signed-in guest's RSVP
// @Description Provenance fields in the body are ignored.
// @Tags rsvp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.RSVPDraft true "RSVP"
// @Success 200 {object} model.RSVP
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} guard.DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /rsvp [put]
func (h *RSVPHandler) Update(c echo.Context) error {
	var draft service.RSVPDraft
	if err := bindAndValidate(c, &draft); err != nil {
		return err
	}

	rec, err := h.rsvpService.Save(c.Request().Context(), guard.IdentityFrom(c), draft)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// AddGuests godoc
// @Summary RSVP on behalf of guests without an account
// @Tags rsvp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GuestsRequest true "Guests"
// @Success 201 {array} model.RSVP
// @Success 207 {object} SubmitResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} guard.DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /rsvp/guests [post]
func (h *RSVPHandler) AddGuests(c echo.Context) error {
	var req GuestsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := h.rsvpService.CreateOnBehalf(c.Request().Context(), guard.IdentityFrom(c), req.Guests)
	if err != nil {
		if len(created) == 0 {
			return handleError(err)
		}
		return c.JSON(http.StatusMultiStatus, SubmitResponse{
			SubmitResult: service.SubmitResult{Guests: created},
			Error:        errors.MapErrorToHTTP(err).Message,
		})
	}
	return c.JSON(http.StatusCreated, created)
}
