package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equihome/launchpad/internal/api"
	"github.com/equihome/launchpad/internal/auth"
	"github.com/equihome/launchpad/internal/config"
	"github.com/equihome/launchpad/internal/events"
	"github.com/equihome/launchpad/internal/notify"
	"github.com/equihome/launchpad/internal/pkg/logger"
	"github.com/equihome/launchpad/internal/pkg/retry"
	"github.com/equihome/launchpad/internal/ratelimit"
	"github.com/equihome/launchpad/internal/service/access"
	"github.com/equihome/launchpad/internal/service/activity"
	"github.com/equihome/launchpad/internal/service/admin"
	"github.com/equihome/launchpad/internal/service/newsletter"
	"github.com/equihome/launchpad/internal/storage"
)

type leadPublisher interface {
	access.EventPublisher
	Wait()
}

func main() {
	log.Println("Launchpad API server (cmd/server)")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Configure(cfg.Logging.Level, !cfg.Logging.DisableRedaction)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer st.close()
	logger.Info("storage ready", "type", cfg.Storage.Type)

	allow, err := buildAllowlist(cfg.Access.Allowlist)
	if err != nil {
		log.Fatalf("Invalid allowlist: %v", err)
	}

	// Email
	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.Email.Provider == "ses" {
		awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{
			Region:    cfg.Email.Region,
			AccessKey: cfg.Email.AccessKey,
			SecretKey: cfg.Email.SecretKey,
		})
		if err != nil {
			log.Fatalf("Failed to load AWS config for SES: %v", err)
		}
		mailer = notify.NewSESMailer(awsCfg, cfg.Email.From, cfg.Email.FromName)
		logger.Info("email provider ready", "provider", "ses", "from", cfg.Email.From)
	} else {
		logger.Info("email provider ready", "provider", "log")
	}
	templates, err := notify.NewTemplates()
	if err != nil {
		log.Fatalf("Failed to parse email templates: %v", err)
	}
	dispatcher := notify.NewDispatcher(mailer, templates, notify.DispatcherConfig{
		OperatorEmails: cfg.Access.OperatorEmails,
		SiteURL:        cfg.Email.SiteURL,
		Timeout:        cfg.Email.Timeout(),
	})

	// Lead events
	var publisher leadPublisher = events.NopPublisher{}
	if cfg.Events.Enabled && cfg.Events.QueueURL != "" {
		awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{Region: cfg.Events.Region})
		if err != nil {
			log.Fatalf("Failed to load AWS config for SQS: %v", err)
		}
		publisher = events.NewPublisher(awsCfg, cfg.Events.QueueURL)
		logger.Info("lead events enabled", "queue", cfg.Events.QueueURL)
	}

	// Snapshot export
	var snapshots admin.SnapshotStore
	if cfg.Export.Enabled && cfg.Export.S3Bucket != "" {
		awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{Region: cfg.Export.Region})
		if err != nil {
			log.Fatalf("Failed to load AWS config for S3: %v", err)
		}
		snapshots = storage.NewS3Snapshots(awsCfg, cfg.Export.S3Bucket)
		logger.Info("snapshot export enabled", "bucket", cfg.Export.S3Bucket)
	}

	// Rate limiting
	var (
		limiter     *ratelimit.Limiter
		redisClient *redis.Client
	)
	if cfg.RateLimit.Enabled && cfg.Redis.URL != "" {
		limiter, redisClient, err = ratelimit.NewFromURL(ctx, cfg.Redis.URL, cfg.RateLimit.Requests, cfg.RateLimit.Window())
		if err != nil {
			logger.Warn("rate limiting disabled, redis unavailable", "error", err)
		} else {
			defer redisClient.Close()
			logger.Info("rate limiting enabled", "requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window().String())
		}
	}

	accessSvc := access.NewService(st.access, allow, dispatcher, publisher, access.Config{
		DefaultApprover: cfg.Access.DefaultApprover,
		Retry:           retry.Default,
	})
	activitySvc := activity.NewService(st.activity, retry.Policy{
		Attempts: cfg.Activity.RetryAttempts,
		Delay:    cfg.Activity.RetryDelay(),
	})
	newsletterSvc := newsletter.NewService(st.newsletter, dispatcher, publisher)
	adminSvc := admin.NewService(accessSvc, activitySvc, newsletterSvc, snapshots, admin.Config{
		ActiveWindow: cfg.Admin.ActiveWindow(),
		RecentLimit:  cfg.Admin.RecentActivityLimit,
		ExportPrefix: cfg.Export.Prefix,
	})

	authManager := auth.NewManager(cfg.Admin.TokenSecret)
	if !authManager.Configured() {
		logger.Warn("admin token secret not set, admin routes will reject every request")
	}

	handlers := api.NewHandlers(accessSvc, activitySvc, newsletterSvc, adminSvc,
		api.NewHealthChecker(cfg.Storage.Type, st.health, redisClient))
	server := api.NewServer(cfg.Server, handlers, api.RouteOptions{
		Auth:           authManager,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Let in-flight emails and events finish.
	dispatcher.Wait()
	publisher.Wait()

	log.Println("Server stopped")
}
