package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/sebuszqo/PaymentWidget/internal/auth"
	"github.com/sebuszqo/PaymentWidget/internal/billing"
	"github.com/sebuszqo/PaymentWidget/internal/catalog"
	"github.com/sebuszqo/PaymentWidget/internal/checkout"
	"github.com/sebuszqo/PaymentWidget/internal/config"
	"github.com/sebuszqo/PaymentWidget/internal/events"
	"github.com/sebuszqo/PaymentWidget/internal/journal"
	"github.com/sebuszqo/PaymentWidget/internal/logging"
	"github.com/sebuszqo/PaymentWidget/internal/metrics"
	"github.com/sebuszqo/PaymentWidget/internal/notify"
	"github.com/sebuszqo/PaymentWidget/internal/web"
	"github.com/spf13/cobra"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	shutdownTimeout = 15 * time.Second
	cleanupInterval = time.Minute
)

var Version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "paymentwidget",
		Short:   "Payment widget: service catalog and checkout for agent payments",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing config.yaml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the widget HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(config.MustLoad(*configPath))
		},
	}
}

func tokenCmd(configPath *string) *cobra.Command {
	var (
		agentID   string
		userID    string
		sessionID string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed widget token",
		Long: `Mint a widget token signed with auth.token-secret.

Examples:
  paymentwidget token --agent 42 --user 7
  paymentwidget token --agent 42 --ttl 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				return errors.New("--agent is required")
			}
			cfg := config.MustLoad(*configPath)
			tm, err := auth.NewTokenManager(cfg.Auth.TokenSecret)
			if err != nil {
				return err
			}
			token, err := tm.Issue(agentID, userID, sessionID, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "agent id")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&sessionID, "session", "", "partner session id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, 0 for no expiry")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger := logging.GetLogger(cfg.Logs)
	metrics.Setup(cfg.Metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokenManager, err := auth.NewTokenManager(cfg.Auth.TokenSecret)
	if err != nil {
		return err
	}

	client := billing.NewClient(cfg.Upstream.CatalogURL, cfg.Upstream.PaymentURL, cfg.Upstream.Timeout(), logger)

	loader := catalog.NewLoader(client, logger)
	if err := loader.RefreshCategories(ctx); err != nil {
		logger.Warn("Initial category load failed, will retry on schedule", "error", err)
	}
	refresher, err := loader.StartRefresh(cfg.Catalog.RefreshSpec)
	if err != nil {
		return fmt.Errorf("scheduler didn't start: %w", err)
	}
	defer refresher.Stop()

	var (
		repo   journal.Repository = journal.NewMemoryRepository()
		health func(r *http.Request) map[string]string
	)
	if cfg.Database.URL != "" {
		dbService, err := journal.NewDBService(ctx, cfg.Database.URL, logger)
		if err != nil {
			return fmt.Errorf("could not initialize database: %w", err)
		}
		defer dbService.Close()
		repo = journal.NewPostgresRepository(dbService.DB)
		health = func(r *http.Request) map[string]string {
			return dbService.Health(r.Context())
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Brokers != "" {
		publisher = events.NewKafkaPublisher(events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), logger)
	}
	defer publisher.Close()

	registry := checkout.NewRegistry()
	stopCleanup := registry.StartCleanup(cleanupInterval)
	defer stopCleanup()

	checkoutService := checkout.NewService(client, registry, checkout.Options{
		RedirectDelay: cfg.Checkout.RedirectDelay(),
		TTL:           cfg.Checkout.TTL(),
		Journal:       repo,
		Publisher:     publisher,
		Logger:        logger,
	})
	checkoutHandler := checkout.NewHandler(checkoutService, web.RespondJSON, web.RespondError)

	notifier := notify.NewNotifier(cfg.Upstream.PartnerCallbackURL, cfg.Notify.Timeout(), logger)
	defer notifier.Wait()

	templates, err := web.LoadTemplates(cfg.Server.TemplatesDir)
	if err != nil {
		return fmt.Errorf("could not load templates: %w", err)
	}
	pages := web.NewPages(loader, tokenManager, notifier, templates, logger)

	server := NewServer(pages, checkoutHandler, tokenManager, health)
	server.RegisterRoutes()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
