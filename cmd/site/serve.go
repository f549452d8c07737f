package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seungjae8520/hjjtest/internal/catalog"
	"github.com/seungjae8520/hjjtest/internal/handlers"
	"github.com/seungjae8520/hjjtest/internal/intake"
	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/platform/config"
	"github.com/seungjae8520/hjjtest/internal/platform/events"
	pfirestore "github.com/seungjae8520/hjjtest/internal/platform/firestore"
	"github.com/seungjae8520/hjjtest/internal/platform/idempotency"
	"github.com/seungjae8520/hjjtest/internal/platform/observability"
	"github.com/seungjae8520/hjjtest/internal/platform/secrets"
	"github.com/seungjae8520/hjjtest/internal/platform/session"
	"github.com/seungjae8520/hjjtest/internal/repositories"
	firestoreRepo "github.com/seungjae8520/hjjtest/internal/repositories/firestore"
	"github.com/seungjae8520/hjjtest/internal/repositories/memory"
	"github.com/seungjae8520/hjjtest/internal/repositories/sqlite"
	"github.com/seungjae8520/hjjtest/internal/services"
)

func serveCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the process environment")
	return cmd
}

func serve(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now().UTC()
	envOpt := config.WithEnvFile(envFile)

	level, _, _ := config.Lookup("LOG_LEVEL", envOpt)
	baseLogger, err := observability.NewLogger(level)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("site")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger, envOpt)
	if err != nil {
		return fmt.Errorf("initialise secret fetcher: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, envOpt, config.WithSecretResolver(fetcher))
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			logger.Error("invalid configuration", zap.Strings("fields", verr.Fields()))
		}
		return fmt.Errorf("load configuration: %w", err)
	}

	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	registry, err := openRegistry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	publisher, err := openPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s publisher: %w", cfg.Events.Driver, err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("event publisher close error", zap.Error(err))
		}
	}()

	sessions, err := session.NewManager(cfg.Session.SigningKey, session.WithSecureCookies(cfg.Session.SecureCookies))
	if err != nil {
		return fmt.Errorf("initialise sessions: %w", err)
	}
	if sessions.Ephemeral() {
		logger.Warn("session signing key not configured; cookies will not survive a restart")
	}

	intakeClient := intake.NewClient(cfg.Intake)
	if intakeClient.Simulated() {
		logger.Warn("intake base URL not configured; submissions are simulated")
	}

	clock := func() time.Time { return time.Now().UTC() }
	serviceLogger := observability.FieldLogger(logger.Named("services"))
	workspaces := services.NewWorkspaces(cat, cfg.Workspace.TTL, clock)

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: registry.Carts(),
		Clock:      clock,
		Logger:     serviceLogger,
	})
	if err != nil {
		return fmt.Errorf("initialise cart service: %w", err)
	}
	profileService, err := services.NewProfileService(services.ProfileServiceDeps{
		Repository: registry.Profiles(),
		Clock:      clock,
		Logger:     serviceLogger,
	})
	if err != nil {
		return fmt.Errorf("initialise profile service: %w", err)
	}
	selectionService, err := services.NewSelectionService(services.SelectionServiceDeps{
		Workspaces: workspaces,
		Snapshots:  registry.Snapshots(),
		Notifier:   notify.RequestNotifier{},
		Logger:     serviceLogger,
	})
	if err != nil {
		return fmt.Errorf("initialise selection service: %w", err)
	}
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Workspaces:         workspaces,
		Snapshots:          registry.Snapshots(),
		Intake:             intakeClient,
		Publisher:          publisher,
		Notifier:           notify.RequestNotifier{},
		Clock:              clock,
		Logger:             serviceLogger,
		OptimisticFallback: cfg.Features.OrderOptimisticFallback,
	})
	if err != nil {
		return fmt.Errorf("initialise order service: %w", err)
	}
	leadService, err := services.NewLeadService(services.LeadServiceDeps{
		Intake:             intakeClient,
		Publisher:          publisher,
		Notifier:           notify.RequestNotifier{},
		Clock:              clock,
		Logger:             serviceLogger,
		OptimisticFallback: cfg.Features.LeadOptimisticFallback,
	})
	if err != nil {
		return fmt.Errorf("initialise lead service: %w", err)
	}

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyLogger := observability.NewPrintfAdapter(logger.Named("idempotency"))
	submitGuard := idempotency.Middleware(idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(idempotencyLogger),
	)

	backgroundCtx, backgroundCancel := context.WithCancel(ctx)
	var backgroundWG sync.WaitGroup
	backgroundWG.Add(2)
	go func() {
		defer backgroundWG.Done()
		idempotency.Sweep(backgroundCtx, idempotencyStore, cfg.Idempotency.CleanupInterval, clock, idempotencyLogger)
	}()
	go func() {
		defer backgroundWG.Done()
		workspaces.Run(backgroundCtx, 0)
	}()

	health, err := repositories.NewHealth(dependencyChecks(registry, publisher))
	if err != nil {
		backgroundCancel()
		return fmt.Errorf("initialise health checks: %w", err)
	}
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(handlers.BuildInfo{
			Version:     version,
			CommitSHA:   commitSHA,
			Environment: environmentName(cfg),
			StartedAt:   startedAt,
		}),
		handlers.WithHealthCollector(health),
	)

	projectID := traceProjectID(cfg)
	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(projectID),
			observability.RecoveryMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(projectID),
			sessions.Middleware,
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(cat).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(cartService).Routes),
		handlers.WithProfileRoutes(handlers.NewProfileHandlers(profileService).Routes),
		handlers.WithSelectionRoutes(handlers.NewSelectionHandlers(selectionService).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(orderService, submitGuard).Routes),
		handlers.WithLeadRoutes(handlers.NewLeadHandlers(leadService, submitGuard).Routes),
		handlers.WithToolRoutes(handlers.NewToolHandlers().Routes),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("site api listening",
			zap.String("storage", cfg.Storage.Driver),
			zap.String("events", cfg.Events.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-shutdown:
		logger.Info("shutdown signal received; draining requests")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	backgroundCancel()
	backgroundWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	return runErr
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, envOpt config.Option) (*secrets.Fetcher, error) {
	opts := []secrets.Option{secrets.WithLogger(logger.Named("secrets"))}
	if project, ok, _ := config.Lookup("SITE_SECRETS_PROJECT_ID", envOpt); ok && strings.TrimSpace(project) != "" {
		opts = append(opts, secrets.WithProject(strings.TrimSpace(project)))
	}
	if path, ok, _ := config.Lookup("SITE_SECRETS_FALLBACK_FILE", envOpt); ok && strings.TrimSpace(path) != "" {
		opts = append(opts, secrets.WithFallbackFile(strings.TrimSpace(path)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func openRegistry(ctx context.Context, cfg config.Config) (repositories.Registry, error) {
	switch cfg.Storage.Driver {
	case config.StorageFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return nil, err
		}
		return firestoreRepo.NewRegistry(provider)
	case config.StorageSQLite:
		return sqlite.Open(ctx, cfg.SQLite.Path)
	default:
		return memory.New(), nil
	}
}

func openPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case config.EventsPubSub:
		return events.DialPubSub(ctx, cfg.Events.PubSubProjectID, cfg.Events.PubSubTopic)
	case config.EventsRabbitMQ:
		return events.DialRabbitMQ(cfg.Events.RabbitMQURL, cfg.Events.RabbitExchange)
	default:
		return events.NopPublisher{}, nil
	}
}

func dependencyChecks(registry repositories.Registry, publisher events.Publisher) []repositories.DependencyCheck {
	return []repositories.DependencyCheck{
		{Name: "storage", Timeout: 1500 * time.Millisecond, Check: registry.Ping},
		{Name: "events", Timeout: time.Second, Check: publisher.Ping},
	}
}

func traceProjectID(cfg config.Config) string {
	for _, candidate := range []string{cfg.Firestore.ProjectID, cfg.Events.PubSubProjectID, cfg.Secrets.ProjectID} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func environmentName(cfg config.Config) string {
	if cfg.Storage.Driver == config.StorageMemory {
		return "local"
	}
	return cfg.Storage.Driver
}
