package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/medportal/portal-backend/internal/config"
	"github.com/medportal/portal-backend/internal/diagnosis"
	"github.com/medportal/portal-backend/internal/gate"
	"github.com/medportal/portal-backend/internal/logging"
	"github.com/medportal/portal-backend/internal/metrics"
	"github.com/medportal/portal-backend/internal/post"
	"github.com/medportal/portal-backend/internal/user"
)

type deps struct {
	users     *user.Service
	posts     *post.Service
	diagnoses *diagnosis.Service
}

func newApp(cfg config.Config, d deps) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(logging.Middleware())
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	userHandler := user.NewHandler(d.users, cfg.StoreKey)
	userHandler.RegisterPublicRoutes(app)

	app.Use(gate.Session(cfg.StoreKey))
	requireUser := gate.Require(d.users, "")
	requireAdmin := gate.Require(d.users, user.RoleHospitalAdmin)

	userHandler.RegisterProtectedRoutes(app, requireUser)
	userHandler.RegisterAdminRoutes(app, requireAdmin)
	post.NewHandler(d.posts).RegisterProtectedRoutes(app, requireUser)
	diagnosisHandler := diagnosis.NewHandler(d.diagnoses, cfg.DiagnosisRPS, cfg.DiagnosisBurst)
	diagnosisHandler.RegisterProtectedRoutes(app, requireUser)
	app.Hooks().OnShutdown(func() error {
		diagnosisHandler.Close()
		return nil
	})

	return app
}
