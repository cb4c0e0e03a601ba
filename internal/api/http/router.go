package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/org-directory/internal/api/http/handlers"
	"github.com/spec-kit/org-directory/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Employees      *handlers.DirectoryHandler
	Managers       *handlers.DirectoryHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. The employee and manager groups are the
// two role-scoped facades over the shared directory engine.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	registerDirectoryRoutes(app.Group("/employees", cfg.AuthMiddleware.Handle), cfg.Employees)
	registerDirectoryRoutes(app.Group("/managers", cfg.AuthMiddleware.Handle), cfg.Managers)
}

func registerDirectoryRoutes(group fiber.Router, handler *handlers.DirectoryHandler) {
	group.Get("/facility/:facilityId", handler.ListForFacility)
	group.Get("/:userId", handler.Get)
	group.Delete("/:userId", handler.Delete)
	group.Post("/", handler.Create)
	group.Patch("/:userId", handler.Update)
}
