package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/cache"
	"github.com/bddaily/bddaily-server/pkg/config"
	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/handlers"
	"github.com/bddaily/bddaily-server/pkg/logging"
	"github.com/bddaily/bddaily-server/pkg/mapping"
	"github.com/bddaily/bddaily-server/pkg/middleware"
	"github.com/bddaily/bddaily-server/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	tables := services.TablesFromConfig(&cfg.Feishu)
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("feishu_app_id", cfg.Feishu.AppID),
		zap.String("feishu_app_secret", logging.MaskSecret(cfg.Feishu.AppSecret)),
		zap.Bool("customer_table", tables.Customer.Configured()),
		zap.Bool("project_table", tables.Project.Configured()),
		zap.Bool("deal_table", tables.Deal.Configured()),
		zap.Int("person_overrides", len(cfg.Feishu.PersonIDMap)),
		zap.Bool("redis", cfg.Redis.Enabled()),
	)

	store, closeStore, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up cache store", zap.Error(err))
	}
	defer closeStore()

	client := feishu.NewClient(feishu.Options{
		BaseURL:    cfg.Feishu.BaseURL,
		AppID:      cfg.Feishu.AppID,
		AppSecret:  cfg.Feishu.AppSecret,
		UserIDType: cfg.Feishu.UserIDType,
	}, logger)

	dates := mapping.DefaultDateThresholds.WithSerialWindow(cfg.Dates.SerialMin, cfg.Dates.SerialMax)
	scanSize := cfg.Cache.ScanPageSize

	fieldMaps := services.NewFieldMapCache(client, store, cfg.Cache.FieldMapTTL, logger)
	persons := services.NewPersonResolver(client, cfg.Feishu.PersonIDMap, store, cfg.Cache.PersonIndexTTL, scanSize, tables, logger)

	customerService := services.NewCustomerService(client, fieldMaps, persons, tables, scanSize, logger)
	projectService := services.NewProjectService(client, persons, tables, scanSize, dates, logger)
	dealService := services.NewDealService(client, projectService, tables, scanSize, dates, logger)
	reminderService := services.NewReminderService(projectService, cfg.Reminders.StaleDays, logger)
	debugService := services.NewDebugService(client, persons, tables, scanSize, cfg, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewCustomersHandler(customerService, logger).RegisterRoutes(mux)
	handlers.NewProjectsHandler(projectService, logger).RegisterRoutes(mux)
	handlers.NewDealsHandler(dealService, logger).RegisterRoutes(mux)
	handlers.NewRemindersHandler(reminderService, logger).RegisterRoutes(mux)
	handlers.NewDebugHandler(debugService, logger).RegisterRoutes(mux)
	handlers.NewKanbanHandler(&cfg.Feishu, logger).RegisterRoutes(mux)
	handlers.NewDashboardHandler(cfg.Feishu.DashboardEmbedURL, logger).RegisterRoutes(mux)

	// Serve the built frontend when present
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
		logger.Info("Serving static files", zap.String("dir", cfg.StaticDir))
	}

	handler := middleware.Chain(mux,
		middleware.RequestID(),
		middleware.RequestLogger(logger.Named("http")),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: cfg.CORSOrigins}),
	)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting bddaily-server", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	waitForShutdown(logger, server)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopmentConfig().Build()
	}
	return zap.NewProductionConfig().Build()
}

// newStore picks Redis when configured so replicas share caches, else process memory.
func newStore(cfg *config.Config, logger *zap.Logger) (cache.Store, func(), error) {
	if !cfg.Redis.Enabled() {
		return cache.NewMemoryStore(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using Redis cache", zap.String("addr", cfg.Redis.Addr()), zap.String("prefix", cfg.Redis.Prefix))
	return cache.NewRedisStore(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
}

func waitForShutdown(logger *zap.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}
