package apiv1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const (
	HttpServerBaseRoute string = "/api/v1"
	HttpServerRootRoute string = ""
)

// Response is a standard API response structure
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SuccessResponse returns a successful response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// ErrorResponse returns an error response
func ErrorResponse(c echo.Context, code int, message string) error {
	return c.JSON(code, Response{
		Success: false,
		Error:   message,
	})
}

// DomainErrorResponse maps the typed error taxonomy onto HTTP responses. Every
// message here is already safe to surface; anything unrecognized becomes an
// opaque 500.
func DomainErrorResponse(c echo.Context, err error) error {
	var unknownProvider *types.ErrUnknownProvider
	var unsupportedAction *types.ErrUnsupportedAction
	var invalidParams *types.ErrInvalidParams
	var upstream *types.ErrUpstreamAction

	switch {
	case errors.Is(err, types.ErrIntegrationNotFound):
		return ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrStateNotFoundOrExpired):
		return ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrTokenExchange):
		return ErrorResponse(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, types.ErrIntegrationExpired):
		return ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrDecryption):
		return ErrorResponse(c, http.StatusConflict, types.ErrDecryption.Error())
	case errors.As(err, &unknownProvider):
		return ErrorResponse(c, http.StatusBadRequest, unknownProvider.Error())
	case errors.As(err, &unsupportedAction):
		return ErrorResponse(c, http.StatusBadRequest, unsupportedAction.Error())
	case errors.As(err, &invalidParams):
		return ErrorResponse(c, http.StatusBadRequest, invalidParams.Error())
	case errors.As(err, &upstream):
		return ErrorResponse(c, http.StatusBadGateway, upstream.Error())
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
}
