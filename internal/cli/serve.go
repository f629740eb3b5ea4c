package cli

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"admin-dashboard/internal/api"
	"admin-dashboard/internal/auth"
	"admin-dashboard/internal/cache"
	"admin-dashboard/internal/config"
	"admin-dashboard/internal/events"
	"admin-dashboard/internal/resilience"
	"admin-dashboard/internal/resource"
	"admin-dashboard/internal/services"
	"admin-dashboard/internal/shell"
)

const (
	connectAttempts = 3
	connectDelay    = 2 * time.Second
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port         string
		secureCookie bool
		trustProxy   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		Example: `  # Dashboard on :8080 against the local stub APIs
  dashboard serve

  # Custom upstreams and port
  dashboard serve --users-url http://users:4001 --products-url http://products:4002 --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.HTTPPort = port
			}
			if cmd.Flags().Changed("trust-proxy") {
				cfg.TrustProxy = trustProxy
			}
			slog.SetDefault(logger)
			return runServe(cmd.Context(), cfg, logger, secureCookie)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port (overrides HTTP_PORT)")
	cmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "Take client addresses from X-Forwarded-For (only behind a trusted proxy)")
	cmd.Flags().BoolVar(&secureCookie, "secure-cookie", false, "Mark the session cookie Secure (use behind HTTPS)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, secureCookie bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting dashboard",
		"port", cfg.HTTPPort,
		"users_api", cfg.UsersAPIURL,
		"products_api", cfg.ProductsAPIURL,
	)

	serviceClient := services.NewServiceClient(cfg)

	var limiter api.RateLimiter
	if cfg.RedisAddr != "" {
		var redisClient *cache.Client
		err := resilience.Retry(ctx, connectAttempts, connectDelay, func() error {
			var err error
			redisClient, err = cache.NewClient(ctx, cfg.RedisAddr, cfg.RateLimit, cfg.RateWindow)
			return err
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		limiter = redisClient
		logger.Info("Connected to Redis", "addr", cfg.RedisAddr, "limit", cfg.RateLimit, "window", cfg.RateWindow)
	}

	publisher, err := openPublisher(ctx, cfg, logger, connectAttempts)
	if err != nil {
		return err
	}
	defer publisher.Close()

	registry := shell.NewRegistry(cfg.SessionTTL, shell.Dashboard(
		serviceClient.Users,
		serviceClient.Products,
		resource.WithPublisher(publisher),
		resource.WithLogger(logger),
	))
	go registry.Run(ctx, sweepInterval)

	secret := cfg.SessionSecret
	if secret == "" {
		secret = rand.Text()
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	handler := api.NewHandler(registry, auth.NewMiddleware(secret, secureCookie),
		api.WithRateLimiter(limiter),
		api.WithTrustedProxy(cfg.TrustProxy),
	)
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openPublisher connects the audit event producer when brokers are
// configured and returns a no-op publisher otherwise.
func openPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger, attempts int) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Nop{}, nil
	}
	var producer *events.Producer
	err := resilience.Retry(ctx, attempts, connectDelay, func() error {
		var err error
		producer, err = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, logger)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect to kafka: %w", err)
	}
	logger.Info("Publishing audit events", "brokers", cfg.KafkaBrokers, "prefix", cfg.KafkaTopicPrefix)
	return producer, nil
}
