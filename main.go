package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"robopost/domain/repository"
	"robopost/infrastructure/cache"
	"robopost/infrastructure/clients/openai"
	"robopost/infrastructure/clients/xapi"
	"robopost/infrastructure/configuration"
	"robopost/infrastructure/logger"
	"robopost/infrastructure/persistence"
	httpHandler "robopost/interfaces/http"
	"robopost/server"
	"robopost/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	app := configuration.C.App
	bot := configuration.C.Bot
	platform := configuration.C.Platform

	// Credential storage: PostgreSQL when configured, otherwise the .env file
	// itself (tokens live alongside the rest of the bot's settings).
	var store repository.ICredentialStore
	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Info("PostgreSQL not available, storing credentials in .env")
		store = persistence.NewEnvCredentialStore(".env")
	} else {
		if err := persistence.EnsureCredentialSchema(psqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("Ensuring credential schema failed")
		}
		store = persistence.NewCredentialRepository(psqlDb)
		logger.GetLogger().Info("PostgreSQL credential store initialized")
	}

	client := xapi.NewClient(platform.BaseURL, store, xapi.Timeouts{
		Validate: time.Duration(platform.TimeoutValidate) * time.Second,
		Fetch:    time.Duration(platform.TimeoutFetch) * time.Second,
		Publish:  time.Duration(platform.TimeoutPublish) * time.Second,
		Like:     time.Duration(platform.TimeoutLike) * time.Second,
		Refresh:  time.Duration(platform.TimeoutRefresh) * time.Second,
	})

	generator, err := openai.NewGenerator(
		configuration.C.OpenAI.APIKey,
		configuration.C.OpenAI.Model,
		configuration.C.OpenAI.MaxTokens,
		configuration.C.OpenAI.Candidates,
		bot.MaxPostLength,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Content generator initialization failed")
		os.Exit(1)
	}

	postInterval := time.Duration(bot.PostIntervalHours) * time.Hour
	cycle := usecase.NewPostingCycle(store, client, client, generator, client, postInterval)

	trigger := make(chan struct{}, 1)
	healthHandler := httpHandler.NewHealthHandler(cycle)
	botHandler := httpHandler.NewBotHandler(cycle, trigger)
	authHandler := httpHandler.NewPlatformAuthHandler(store)

	router := server.InitiateRouter(healthHandler, botHandler, authHandler)

	// Posting loop: one cycle per sleep interval, plus manual triggers.
	sleepInterval := time.Duration(bot.SleepIntervalSeconds) * time.Second
	g.Go(func() error {
		cycle.Tick(ctx)
		ticker := time.NewTicker(sleepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			case <-trigger:
			}
			if cycle.Halted() {
				logger.GetLogger().Error("Bot halted, posting loop stopped. Health endpoint stays up.")
				return nil
			}
			cycle.Tick(ctx)
		}
	})

	// Reply loop shares the posting cycle's credential.
	if bot.ReplyEnabled {
		var seen repository.ISeenStore
		redisClient, err := cache.NewCache(
			ctx,
			fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
			configuration.C.RedisClient.Username,
			configuration.C.RedisClient.Password,
		)
		if err != nil {
			logger.GetLogger().WithField("error", err).Info("Redis not available, tracking replied posts in a file")
			fileStore, err := persistence.NewSeenFileStore("replied_posts.txt")
			if err != nil {
				logger.GetLogger().WithField("error", err).Error("Replied-post store initialization failed")
				os.Exit(1)
			}
			seen = fileStore
		} else {
			seen = cache.NewSeenCache(redisClient)
			logger.GetLogger().Info("Redis replied-post store initialized")
		}

		replyCycle := usecase.NewReplyCycle(cycle, generator, client, seen, platform.AccountHandle, bot.MaxRepliesPerScan)
		scanInterval := time.Duration(bot.ReplyScanMinutes) * time.Minute
		g.Go(func() error {
			ticker := time.NewTicker(scanInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					replyCycle.Scan(ctx)
				}
			}
		})
	}

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}
