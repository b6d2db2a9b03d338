/*
Package main is the entry point for the Oddsbot server.

The application follows these initialization steps:
1. Load configuration from environment variables
2. Initialize structured logging
3. Create the core server instance with dependencies
4. Set up HTTP middleware (logging, recovery, CORS)
5. Register API routes
6. Start the server with graceful shutdown support
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"oddsbot/core"
)

func main() {
	config := core.LoadConfig()

	logger := core.InitializeLogger(config)
	logger.Info("Starting Oddsbot server")

	server, err := core.NewServer(config, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}
	defer server.Close()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server.RegisterRoutes(e)

	go func() {
		logger.WithField("port", config.Port).Info("Starting server")
		if err := e.Start(fmt.Sprintf(":%s", config.Port)); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Failed to gracefully shutdown server")
	} else {
		logger.Info("Server shutdown complete")
	}
}
