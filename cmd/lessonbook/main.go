package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/lessonbook/docs"
	"github.com/kirinyoku/lessonbook/internal/app"
	"github.com/kirinyoku/lessonbook/internal/config"
)

// @title LessonBook API
// @version 1.0
// @description Lesson catalog, cart and order placement service.
// @host localhost:3000
// @BasePath /
// @securityDefinitions.apikey AdminToken
// @in header
// @name Authorization
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
