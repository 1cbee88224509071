package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
)

// errorBody is the JSON shape of every error response.  Stack is populated
// only in development mode.
type errorBody struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Stack         string `json:"stack,omitempty"`
}

// NewHandler returns the central Echo error handler.  Taxonomy errors keep
// their status code and message; Echo's own routing errors (404, 405) pass
// through; everything else is logged server-side and collapsed into a
// generic 500.  When dev is true the response additionally carries the
// error detail and a stack trace.
func NewHandler(dev bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := errorBody{
			StatusCode:    http.StatusInternalServerError,
			StatusMessage: "INTERNAL_SERVER_ERROR",
		}

		var apiErr *APIError
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
			body.StatusCode = apiErr.StatusCode
			body.StatusMessage = apiErr.StatusMessage
		case errors.As(err, &echoErr):
			body.StatusCode = echoErr.Code
			body.StatusMessage = fmt.Sprintf("%v", echoErr.Message)
		default:
			// Unexpected internal failure: always logged regardless of mode.
			c.Logger().Errorf("internal error: %v", err)
		}

		if dev {
			body.Stack = fmt.Sprintf("%v\n%s", err, debug.Stack())
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(body.StatusCode)
			return
		}
		_ = c.JSON(body.StatusCode, body)
	}
}
