package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/userstack/auth-service/internal/httperr"
	"github.com/userstack/auth-service/internal/middleware"
	"github.com/userstack/auth-service/internal/model"
	"github.com/userstack/auth-service/internal/service"
	"github.com/userstack/auth-service/internal/token"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type rolePart struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
type userPart struct {
	ID          uint64    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	RoleDetails *rolePart `json:"role_details,omitempty"`
}
type authResp struct {
	User   userPart   `json:"user"`
	Tokens token.Pair `json:"tokens"`
}

// userView projects a user record onto the response shape.  Password hash
// and refresh token never leave the service.
func userView(u model.User, role model.Role) userPart {
	part := userPart{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
	if role.ID != 0 {
		part.RoleDetails = &rolePart{ID: role.ID, Name: role.Name}
	}
	return part
}

// Register creates an inactive account and returns its first token pair.
// The verification mail is dispatched out of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return httperr.New(http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return httperr.New(http.StatusBadRequest, "email, name and password are required")
	}

	result, err := h.Auth.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResp{
		User:   userView(result.User, result.Role),
		Tokens: result.Tokens,
	})
}

// Login verifies credentials and rotates the session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return httperr.New(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return httperr.New(http.StatusBadRequest, "email and password are required")
	}

	result, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResp{
		User:   userView(result.User, result.Role),
		Tokens: result.Tokens,
	})
}

// Logout terminates the authenticated user's session.  Safe to retry.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return httperr.ErrMissingToken
	}
	if err := h.Auth.Logout(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// GenerateToken exchanges a refresh token for a fresh pair.  The privilege
// tier of the route decides which secret pair verifies the token: the same
// handler serves /v1/auth and /v1/admin with different role classes.
func (h *AuthHandler) GenerateToken(class token.RoleClass) echo.HandlerFunc {
	return func(c echo.Context) error {
		refreshToken := strings.TrimSpace(c.Param("refreshToken"))
		if refreshToken == "" {
			return httperr.ErrMissingToken
		}
		tokens, err := h.Auth.Refresh(c.Request().Context(), refreshToken, class)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"tokens": tokens})
	}
}

// VerifyEmail activates the account referenced by the verification token
// from the registration mail.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	verificationToken := strings.TrimSpace(c.Param("token"))
	if verificationToken == "" {
		return httperr.ErrMissingToken
	}
	user, err := h.Auth.VerifyEmail(c.Request().Context(), verificationToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Email verified, account " + user.Email + " is now active",
	})
}
