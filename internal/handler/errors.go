package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps service errors onto status codes. Unknown errors become
// 500 and are logged by the error handler without reaching the client.
func toHTTPError(err error) error {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		return echo.NewHTTPError(http.StatusBadRequest, vErr.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		// token internals stay server side
		return echo.NewHTTPError(http.StatusUnauthorized, publicMessage(err))
	case errors.Is(err, service.ErrExternalService):
		return echo.NewHTTPError(http.StatusBadGateway, "video provider unavailable").SetInternal(err)
	default:
		return err
	}
}

func publicMessage(err error) string {
	for _, known := range []error{
		service.ErrInvalidJoinToken,
		service.ErrJoinWindowClosed,
		service.ErrNotAdmitted,
		service.ErrRoleNotAllowed,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return service.ErrUnauthorized.Error()
}

func parseID(c echo.Context, label string) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+label+" id")
	}
	return uint(id), nil
}

// authorizeMeeting lets operators through and binds a visitor's join token
// to the meeting being accessed.
func authorizeMeeting(c echo.Context, access service.AccessService, meetingID uint) (service.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return service.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}
	if p.IsOperator() {
		return p, nil
	}
	if _, err := access.AuthorizeMeeting(c.Request().Context(), p.Token, meetingID); err != nil {
		return service.Principal{}, toHTTPError(err)
	}
	return p, nil
}
