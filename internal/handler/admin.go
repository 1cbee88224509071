package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/userstack/auth-service/internal/httperr"
	"github.com/userstack/auth-service/internal/service"
)

// AdminHandler serves the admin-only account management endpoints.
type AdminHandler struct {
	Auth *service.AuthService
}

func NewAdminHandler(auth *service.AuthService) *AdminHandler {
	return &AdminHandler{Auth: auth}
}

type actionUserReq struct {
	UserID uint64 `json:"user_id"`
	Action string `json:"action"` // ACTIVATE | DEACTIVATE | DELETE
}

// ActionUser applies an account action to the target user.  Requires an
// admin bearer token; the route middleware enforces the admin secret pair.
func (h *AdminHandler) ActionUser(c echo.Context) error {
	var req actionUserReq
	if err := c.Bind(&req); err != nil {
		return httperr.New(http.StatusBadRequest, "invalid body")
	}
	action := service.UserAction(req.Action)
	if req.UserID == 0 || !action.Valid() {
		return httperr.New(http.StatusBadRequest, "user_id and a valid action are required")
	}

	user, err := h.Auth.ActionUser(c.Request().Context(), req.UserID, action)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("User %s %s successfully", user.Name, action),
	})
}
