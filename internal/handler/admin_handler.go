package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"weddingsite/internal/errors"
	"weddingsite/internal/service"
)

// AdminHandler handles the admin dashboard.
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// List godoc
// @Summary List RSVPs with search, paging and totals
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search name, email, dietary and songs"
// @Param page query int false "Page" default(1)
// @Success 200 {object} service.AdminOverview
// @Failure 401 {object} guard.DeniedResponse
// @Failure 403 {object} guard.DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/rsvps [get]
func (h *AdminHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))

	overview, err := h.adminService.Overview(c.Request().Context(), c.QueryParam("q"), page)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, overview)
}

// Update godoc
// @Summary Edit an RSVP
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "RSVP ID"
// @Param request body service.AdminEdit true "Fields to change"
// @Success 200 {object} model.RSVP
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} guard.DeniedResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/rsvps/{id} [put]
func (h *AdminHandler) Update(c echo.Context) error {
	id, err := rsvpID(c)
	if err != nil {
		return err
	}

	var edit service.AdminEdit
	if err := bindAndValidate(c, &edit); err != nil {
		return err
	}

	rec, err := h.adminService.Update(c.Request().Context(), id, edit)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Delete godoc
// @Summary Delete an RSVP
// @Tags admin
// @Security BearerAuth
// @Param id path string true "RSVP ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} guard.DeniedResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/rsvps/{id} [delete]
func (h *AdminHandler) Delete(c echo.Context) error {
	id, err := rsvpID(c)
	if err != nil {
		return err
	}

	if err := h.adminService.Delete(c.Request().Context(), id); err != nil {
		return handleError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Export godoc
// @Summary Download RSVPs as CSV
// @Tags admin
// @Produce text/csv
// @Security BearerAuth
// @Param q query string false "Search name, email, dietary and songs"
// @Success 200 {file} file
// @Failure 403 {object} guard.DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/rsvps/export [get]
func (h *AdminHandler) Export(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.adminService.ExportCSV(c.Request().Context(), c.QueryParam("q"), &buf); err != nil {
		return handleError(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="rsvps-%s.csv"`, time.Now().Format("2006-01-02")))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func rsvpID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid rsvp id",
			Code:  "INVALID_ID",
		})
	}
	return id, nil
}
