package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"autoapply/internal/api/routes"
	"autoapply/internal/assistant"
	"autoapply/internal/bot"
	"autoapply/internal/config"
	"autoapply/internal/llm"
	"autoapply/internal/logging"
	"autoapply/internal/notify"
	"autoapply/internal/store"
	"autoapply/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting autoapply", map[string]interface{}{
		"env": cfg.Env,
	})

	if err := cfg.RequireCredentials(true); err != nil {
		logger.Fatal("Missing credentials", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Open the application store
	st, err := store.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to open application store", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Start the chat manager
	llmManager := llm.NewManager(cfg)
	if err := llmManager.Start(); err != nil {
		logger.Fatal("Failed to start chat manager", map[string]interface{}{
			"error": err.Error(),
		})
	}

	advisor := assistant.New(cfg, llmManager, utils.NewAnswerCache(cfg))
	notifier := notify.NewClient(cfg)

	// Launch the browser session
	session, err := bot.NewSession(cfg)
	if err != nil {
		logger.Fatal("Failed to launch browser", map[string]interface{}{
			"error": err.Error(),
		})
	}

	solver := bot.NewTwoCaptchaSolver(cfg)
	runner := bot.NewRunner(cfg, session, advisor, st, notifier, solver)

	// Start the status server when enabled
	var e *echo.Echo
	if cfg.Server.Enabled {
		e = echo.New()
		e.HideBanner = true
		e.HidePort = true
		routes.SetupRoutes(e, cfg, llmManager, st, runner)

		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			logger.Info("Status server starting", map[string]interface{}{
				"address": address,
			})
			if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Status server stopped", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	// Cancel the run on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutdown signal received, stopping run...")
		cancel()
	}()

	runErr := runner.Run(ctx)
	cancel()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("Run aborted", map[string]interface{}{
			"error": runErr.Error(),
		})
	}

	// Ordered shutdown with a hard deadline
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down...")
	session.Close()

	if e != nil {
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down status server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if err := llmManager.Stop(); err != nil {
		logger.Error("Error stopping chat manager", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := st.Close(); err != nil {
		logger.Error("Error closing application store", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Info("Shutdown complete")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logging.CloseLogging()
		os.Exit(1)
	}
}
