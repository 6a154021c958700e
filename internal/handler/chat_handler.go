package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/labstack/echo/v4"
)

const defaultOperatorName = "Advisor"

type ChatHandler struct {
	chat   service.ChatService
	access service.AccessService
}

func NewChatHandler(chat service.ChatService, access service.AccessService) *ChatHandler {
	return &ChatHandler{chat: chat, access: access}
}

func (h *ChatHandler) RegisterRoutes(e *echo.Echo, auth *middleware.Auth) {
	meetings := e.Group("/api/v1/meetings")
	meetings.GET("/:id/messages", h.ListMessages, auth.Participant)
	meetings.POST("/:id/messages", h.PostMessage, auth.Participant)
	meetings.GET("/:id/files", h.ListFiles, auth.Participant)
	meetings.POST("/:id/files", h.PostFile, auth.Participant)
}

// ListMessages returns the history, or only messages newer than ?after=<id>.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	meetingID, err := parseID(c, "meeting")
	if err != nil {
		return err
	}
	if _, err := authorizeMeeting(c, h.access, meetingID); err != nil {
		return err
	}

	var after uint64
	if s := c.QueryParam("after"); s != "" {
		after, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid after id")
		}
	}

	msgs, err := h.chat.ListMessages(c.Request().Context(), meetingID, uint(after))
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.MessageResponse, len(msgs))
	for i := range msgs {
		resp[i] = dto.ToMessageResponse(&msgs[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) PostMessage(c echo.Context) error {
	meetingID, err := parseID(c, "meeting")
	if err != nil {
		return err
	}
	p, err := authorizeMeeting(c, h.access, meetingID)
	if err != nil {
		return err
	}

	var req dto.PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	msg, err := h.chat.PostMessage(c.Request().Context(), meetingID, p.Role, senderName(p, req.SenderName), req.Content)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToMessageResponse(msg))
}

func (h *ChatHandler) ListFiles(c echo.Context) error {
	meetingID, err := parseID(c, "meeting")
	if err != nil {
		return err
	}
	if _, err := authorizeMeeting(c, h.access, meetingID); err != nil {
		return err
	}

	files, err := h.chat.ListFiles(c.Request().Context(), meetingID)
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.FileResponse, len(files))
	for i := range files {
		resp[i] = dto.ToFileResponse(&files[i])
	}
	return c.JSON(http.StatusOK, resp)
}

// PostFile accepts a multipart upload in field "file", or a JSON body that
// links an already hosted URL.
func (h *ChatHandler) PostFile(c echo.Context) error {
	meetingID, err := parseID(c, "meeting")
	if err != nil {
		return err
	}
	p, err := authorizeMeeting(c, h.access, meetingID)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "file is required")
		}
		src, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "could not read upload")
		}
		defer src.Close()

		file, err := h.chat.PostFile(ctx, meetingID, senderName(p, c.FormValue("uploaded_by")), fh.Filename, fh.Header.Get(echo.HeaderContentType), src)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusCreated, dto.ToFileResponse(file))
	}

	var req dto.AttachFileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file or url is required")
	}

	file, err := h.chat.AttachFile(ctx, meetingID, senderName(p, req.UploadedBy), req.URL)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToFileResponse(file))
}

func senderName(p service.Principal, given string) string {
	given = strings.TrimSpace(given)
	if given == "" && p.Role == models.RoleOperator {
		return defaultOperatorName
	}
	return given
}
