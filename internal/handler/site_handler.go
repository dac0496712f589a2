package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"weddingsite/internal/service"
)

// SiteHandler serves public event information.
type SiteHandler struct {
	siteService service.SiteService
}

// NewSiteHandler creates a new site handler.
func NewSiteHandler(siteService service.SiteService) *SiteHandler {
	return &SiteHandler{siteService: siteService}
}

// Event godoc
// @Summary Venue, date and countdown
// @Tags event
// @Produce json
// @Success 200 {object} service.EventInfo
// @Router /event [get]
func (h *SiteHandler) Event(c echo.Context) error {
	return c.JSON(http.StatusOK, h.siteService.Event(time.Now()))
}
