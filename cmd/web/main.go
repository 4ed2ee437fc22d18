package main

import (
	"flag"

	"github.com/bilgisen/blogfront/internal/logger"
	"github.com/bilgisen/blogfront/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// Serves a tree written by cmd/generate, e.g. to preview a build locally.
func main() {
	dir := flag.String("dir", "./data/site", "directory of generated pages")
	port := flag.String("port", "3000", "port to listen on")
	flag.Parse()

	if err := logger.Init(logger.Config{Level: "info", Pretty: true}); err != nil {
		panic(err)
	}
	log := logger.Get()

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(middleware.RequestLogger())
	app.Static("/", *dir, fiber.Static{
		Index:    "index.html",
		Compress: true,
	})

	log.Info().Str("dir", *dir).Msgf("Web server starting on http://localhost:%s", *port)
	if err := app.Listen(":" + *port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
