package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers and monitoring
// systems.  It answers before any database or broker work, so it reports
// process health only.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
