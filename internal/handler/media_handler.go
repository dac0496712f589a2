package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"weddingsite/internal/guard"
	"weddingsite/internal/media"
)

// MediaHandler handles the wedding album.
type MediaHandler struct {
	mediaService *media.Service
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(mediaService *media.Service) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// List godoc
// @Summary List one album folder
// @Tags media
// @Produce json
// @Security BearerAuth
// @Param folder path string true "Folder" Enums(main, photos, videos, message_wall)
// @Param page_token query string false "Token from the previous page"
// @Param page_size query int false "Items per page" default(48)
// @Success 200 {object} media.Album
// @Failure 401 {object} guard.DeniedResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /media/{folder} [get]
func (h *MediaHandler) List(c echo.Context) error {
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	album, err := h.mediaService.List(c.Request().Context(), c.Param("folder"), c.QueryParam("page_token"), pageSize)
	if err != nil {
		return handleError(err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, album)
}

// Picker godoc
// @Summary Upload picker configuration
// @Tags media
// @Produce json
// @Security BearerAuth
// @Success 200 {object} media.PickerConfig
// @Failure 401 {object} guard.DeniedResponse
// @Router /media/picker [get]
func (h *MediaHandler) Picker(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mediaService.Picker())
}

// UploadNameRequest asks for the stored name of an upload.
type UploadNameRequest struct {
	DisplayName  string `json:"display_name"` // defaults to the signed-in user's name
	OriginalName string `json:"original_name" validate:"required"`
}

// UploadName godoc
// @Summary Build the stored file name for an upload
// @Tags media
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UploadNameRequest true "Uploader and file"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Router /media/upload-name [post]
func (h *MediaHandler) UploadName(c echo.Context) error {
	var req UploadNameRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.DisplayName == "" {
		req.DisplayName = guard.IdentityFrom(c).DisplayName()
	}
	return c.JSON(http.StatusOK, map[string]string{
		"file_name": media.BuildUploadFilename(req.DisplayName, req.OriginalName),
	})
}
