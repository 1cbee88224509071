package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/userstack/auth-service/internal/config"
	"github.com/userstack/auth-service/internal/handler"
	"github.com/userstack/auth-service/internal/middleware"
	"github.com/userstack/auth-service/internal/token"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the auth endpoints under /v1/auth.  The whole group
// sits behind the rate limiter; logout additionally requires a standard
// bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, codec *token.Codec, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/auth")
	g.Use(middleware.RateLimit(rlCfg, rdb))

	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh is a GET carrying the refresh token as a path parameter, and
	// verifies against the standard secret pair.
	g.GET("/generate-token/:refreshToken", a.GenerateToken(token.RoleStandard))
	// Activation link target from the registration mail.
	g.GET("/verify-email/:token", a.VerifyEmail)
	// Logout needs a valid standard access token to resolve the subject.
	g.GET("/logout", a.Logout, middleware.RequireAuth(codec, token.RoleStandard))
}

// RegisterAdmin wires the admin endpoints under /v1/admin.  Token refresh
// for admins verifies against the admin secret pair; account actions
// require an admin bearer token.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, adm *handler.AdminHandler, codec *token.Codec) {
	g := e.Group("/v1/admin")

	g.GET("/generate-token/:refreshToken", a.GenerateToken(token.RoleAdmin))
	g.PATCH("/action-user", adm.ActionUser, middleware.RequireAuth(codec, token.RoleAdmin))
}
