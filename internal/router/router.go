package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/proposal-review-api/internal/config"
	"github.com/noah-isme/proposal-review-api/internal/handler"
	"github.com/noah-isme/proposal-review-api/internal/middleware"
	"github.com/noah-isme/proposal-review-api/internal/models"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AccountHandler      *handler.AccountHandler
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	ReviewHandler       *handler.ReviewHandler
	DocumentHandler     *handler.DocumentHandler
	PolicyHandler       *handler.PolicyHandler
	ActivityHandler     *handler.ActivityHandler
	DashboardHandler    *handler.DashboardHandler
	NotificationHandler *handler.NotificationHandler
	SeedHandler         *handler.SeedHandler
	HealthProbes        []handler.HealthProbe
	JWTMiddleware       fiber.Handler
	IdentityMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	writeLimit := middleware.RateLimit("write", cfg.RateLimitMax, cfg.RateLimitWindow)

	if deps.AccountHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("signup", cfg.RateLimitMax, cfg.RateLimitWindow))
		deps.AccountHandler.RegisterPublic(auth)
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed", middleware.RateLimit("seed", 5, time.Minute)))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	identity := deps.IdentityMiddleware
	if identity == nil {
		identity = func(c *fiber.Ctx) error { return c.Next() }
	}

	secured := api.Group("", jwtMiddleware, identity)

	if deps.AccountHandler != nil {
		secured.Get("/me", middleware.WithAuth(deps.AccountHandler.Me, middleware.AuthOptions{}))
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(secured)
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(secured)
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(secured.Group("/notifications"))
	}

	submissions := secured.Group("/submissions")
	submissions.Use(func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet {
			return c.Next()
		}
		return writeLimit(c)
	})
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.Register(submissions)
	}
	if deps.ReviewHandler != nil {
		deps.ReviewHandler.Register(submissions)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(submissions)
	}

	admin := secured.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.RegisterAdmin(admin)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterAdmin(admin)
	}
	if deps.PolicyHandler != nil {
		deps.PolicyHandler.Register(admin)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin)
	}

	adminSubmissions := admin.Group("/submissions")
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterAdmin(adminSubmissions)
	}
	if deps.ReviewHandler != nil {
		deps.ReviewHandler.RegisterAdmin(adminSubmissions)
	}
}
