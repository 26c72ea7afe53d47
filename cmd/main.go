package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/foresturquhart/indexhook/api/v1"
	"github.com/foresturquhart/indexhook/config"
	"github.com/foresturquhart/indexhook/container"
	"github.com/foresturquhart/indexhook/search"
	"github.com/foresturquhart/indexhook/services"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Configure logging
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// Initialize container with all dependencies
	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application container")
	}
	defer c.Close()

	// Perform migrations
	if err := c.Postgres.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to perform database migrations")
	}
	if err := c.Elastic.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to perform search index migrations")
	}

	// Initialize services and the search indexes they back
	personService := services.NewPersonService(c.Postgres, c.Enqueuer, search.NewPersonSearch(c.Elastic.Client))
	if err := c.Indexes.Register(personService.Index()); err != nil {
		log.Fatal().Err(err).Msg("Failed to register search index")
	}

	log.Info().Strs("content_types", c.Indexes.ContentTypes()).Str("default_task", cfg.DefaultTask).Msg("Search indexes registered")

	// Start the worker in a goroutine
	go func() {
		if err := c.Worker.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start background worker")
		}
	}()

	// Set up Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	v1.RegisterRoutes(e, personService, cfg.EncryptionKey)

	// Start the server
	go func() {
		log.Info().Msgf("Starting the server on :%d", cfg.Port)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Info().Msg("Shutting down the server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop the server first so no new commits enqueue work
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to gracefully shutdown server")
	}

	if err := c.Worker.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to gracefully stop background worker")
	}
}
