package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"weddingsite/internal/guard"
	"weddingsite/internal/service"
)

// MessageHandler handles the guest message wall.
type MessageHandler struct {
	messageService service.MessageService
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// MessageRequest is a message left for the couple.
type MessageRequest struct {
	Text string `json:"text"`
}

// Submit godoc
// @Summary Leave a message
// @Description The message is held for moderation before it appears on the wall.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MessageRequest true "Message"
// @Success 201 {object} model.GuestMessage
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} guard.DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /messages [post]
func (h *MessageHandler) Submit(c echo.Context) error {
	var req MessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.messageService.Submit(c.Request().Context(), guard.IdentityFrom(c), req.Text)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// Wall godoc
// @Summary List approved messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param page query int false "Pages loaded so far" default(1)
// @Success 200 {object} service.MessageWall
// @Failure 401 {object} guard.DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /messages [get]
func (h *MessageHandler) Wall(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))

	wall, err := h.messageService.Wall(c.Request().Context(), page)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, wall)
}
