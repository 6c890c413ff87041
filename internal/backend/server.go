package backend

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend/handlers"
	"github.com/Konfistador/ExplorationAppBackend/internal/backend/middleware"
	"github.com/Konfistador/ExplorationAppBackend/internal/backend/utils"
)

const (
	defaultTokenTTL = 30 * 24 * time.Hour
	signupLimit     = 20
)

// NewApp builds the fiber application with every route registered. gatherer
// backs /metrics and may be nil to leave the route out.
func NewApp(webApp *handlers.WebApp, gatherer prometheus.Gatherer) *fiber.App {
	if webApp.TokenTTL <= 0 {
		webApp.TokenTTL = defaultTokenTTL
	}

	app := fiber.New(fiber.Config{
		AppName:               "Exploration API",
		ErrorHandler:          middleware.CustomErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.LoggingMiddleware())

	setupRoutes(app, webApp, gatherer)
	return app
}

func setupRoutes(app *fiber.App, webApp *handlers.WebApp, gatherer prometheus.Gatherer) {
	app.Get("/healthz", handlers.HealthCheck(webApp))
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	app.Post("/user-account", limiter.New(limiter.Config{
		Max:        signupLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.GetIPAddress(c)
		},
		LimitReached: utils.SendTooManyRequests,
	}), handlers.CreateAccount(webApp))

	auth := middleware.AuthRequired(webApp.JWTSecret)

	app.Get("/leaderboard", auth, handlers.Leaderboard(webApp))
	app.Patch("/locations/visit/:id", auth, handlers.VisitLocation(webApp))

	account := app.Group("/user-account", auth)
	account.Get("/", handlers.GetAccount(webApp))
	account.Get("/points", handlers.Points(webApp))
	account.Get("/visits", handlers.Visits(webApp))
	account.Get("/statistics", handlers.Statistics(webApp))
	account.Get("/startedStorylines", handlers.Storylines(webApp, false))
	account.Get("/completedStorylines", handlers.Storylines(webApp, true))
	account.Post("/beginStoryline/:storylineId", handlers.BeginStoryline(webApp))

	trophies := app.Group("/trophy-room", auth)
	trophies.Get("/", handlers.TrophyRoom(webApp))
	trophies.Patch("/add", handlers.AddTrophy(webApp))
}
