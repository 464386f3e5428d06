package handler

import (
	"errors"
	"net/http"

	"github.com/abdusco/snip/internal"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Message string `json:"message"`
}

// ErrorHandler renders every error returned by a handler as {"message": ...}.
// Errors without a known kind are reported as 500 and their text is not sent.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := statusOf(err)

	level := zerolog.DebugLevel
	if code >= http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	log.WithLevel(level).
		Int("code", code).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Err(err).
		Msg("http error")

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Message: message})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write error response")
	}
}

func statusOf(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
		return httpErr.Code, message
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, internal.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, internal.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, internal.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, internal.ErrUnauthorized):
		code = http.StatusUnauthorized
	default:
		return code, "internal server error"
	}

	message, ok := internal.Message(err)
	if !ok {
		message = http.StatusText(code)
	}
	return code, message
}
