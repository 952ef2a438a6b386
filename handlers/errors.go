package handlers

import (
	"errors"
	"net/http"

	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
)

// serviceError maps service-layer errors onto HTTP status codes so every
// handler reports the same taxonomy.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrApplicationNotFound),
		errors.Is(err, services.ErrCaseNotFound),
		errors.Is(err, services.ErrDocumentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrUsageLimitExceeded):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, services.ErrUpstreamUnavailable),
		errors.Is(err, services.ErrUpstreamError):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, services.ErrPaymentNotConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, services.ErrInvalidWebhook):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
