package api

import (
	"github.com/bilgisen/blogfront/internal/config"
	"github.com/bilgisen/blogfront/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, handlers *Handlers, cfg *config.Config) {
	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	// Pages
	app.Get("/", handlers.Index)
	app.Get("/post/:slug", handlers.PostPage)
	app.Get("/sitemap.xml", handlers.Sitemap)

	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", handlers.HealthCheck)

	posts := api.Group("/posts")
	{
		posts.Get("", middleware.ValidateQueryParams[PostsQuery](), handlers.GetPosts) // Listing page by cursor
		posts.Get("/:slug", handlers.GetPost)                                          // Post detail with reading time
	}

	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	{
		admin.Post("/build", handlers.Build)              // Rebuild the static site
		admin.Delete("/pages/:slug", handlers.DeletePage) // Drop a stored post page
		admin.Delete("/cache", handlers.ClearCache)       // Flush the content cache
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
