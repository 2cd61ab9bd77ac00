package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/authz"
	"github.com/logiflow/logiflow/internal/catalog"
	"github.com/logiflow/logiflow/internal/cli/config"
	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store"
	"github.com/logiflow/logiflow/internal/store/relations"
	"github.com/logiflow/logiflow/internal/store/transaction"
	"github.com/logiflow/logiflow/internal/validation"
	"github.com/logiflow/logiflow/internal/web/cache"
	"github.com/logiflow/logiflow/internal/web/graph"
	"github.com/logiflow/logiflow/internal/web/middleware"
	"github.com/logiflow/logiflow/internal/web/rest"
	"github.com/logiflow/logiflow/internal/web/routes"
	"github.com/logiflow/logiflow/internal/web/server"
)

var servePort int

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Build the API surfaces from the entity catalog and serve them.

Startup registers every catalog entity, validates the descriptors,
synthesizes the REST routes and the GraphQL schema, and wires the
capability resolver and response cache. Any descriptor, policy, or
route problem aborts startup; the process never serves a partial API.`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Override the configured server port")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return apierr.NewStartup("config", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cfg.Database.URL == "" {
		return apierr.NewStartup("config", fmt.Errorf("database.url is required (or set LOGIFLOW_DATABASE_URL)"))
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return apierr.NewStartup("logging", err)
	}
	defer logger.Sync()

	registry := model.NewRegistry()
	if err := catalog.Register(registry); err != nil {
		return apierr.NewStartup("catalog", err)
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return apierr.NewStartup("database", err)
	}
	defer db.Close()

	resolver, err := authz.NewResolver(&authz.Config{
		PolicyPath:   cfg.Authz.PolicyFile,
		DefaultRole:  cfg.Auth.DefaultRole,
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
	})
	if err != nil {
		return apierr.NewStartup("authz", err)
	}

	responseCache, err := buildResponseCache(cfg, logger)
	if err != nil {
		return apierr.NewStartup("cache", err)
	}

	stores := store.BuildAll(registry, db, validation.NewEngine(), transaction.NewManager(db))
	loader := relations.NewLoader(db, registry)

	table, err := buildRouteTable(cfg, logger, registry, stores, loader, resolver, responseCache)
	if err != nil {
		return apierr.NewStartup("routes", err)
	}

	logger.Info("api surfaces ready",
		zap.Int("entities", registry.Count()),
		zap.Int("routes", table.Count()),
	)

	srv := server.New(server.Config{
		Host:   cfg.Server.Host,
		Port:   cfg.Server.Port,
		Logger: logger,
	}, table)

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", srv.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

// buildLogger constructs the zap logger from the log settings.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if !cfg.JSON {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// openDatabase connects and verifies the pool.
func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// buildResponseCache picks the backend: Redis when configured, the
// in-process memory cache otherwise, nothing when caching is disabled.
func buildResponseCache(cfg *config.Config, logger *zap.Logger) (*cache.ResponseCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	backendConfig := cache.DefaultConfig()
	backendConfig.DefaultTTL = cfg.Cache.TTL

	var backend cache.Cache
	if cfg.Redis.Addr != "" {
		redisBackend, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Cache:    backendConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		backend = redisBackend
	} else {
		backend = cache.NewMemoryCache(backendConfig)
	}

	return cache.NewResponseCache(backend, cfg.Cache.TTL, logger), nil
}

// buildRouteTable assembles middleware, the generated REST routes, the
// graph endpoint, and the health check into one table.
func buildRouteTable(
	cfg *config.Config,
	logger *zap.Logger,
	registry *model.Registry,
	stores map[string]store.Store,
	loader *relations.Loader,
	resolver *authz.Resolver,
	responseCache *cache.ResponseCache,
) (*routes.Table, error) {
	table := routes.New()
	table.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    logger,
			SkipPaths: []string{"/healthz"},
		}),
		middleware.Auth(middleware.AuthConfig{
			Secret:      []byte(cfg.Auth.JWTSecret),
			DefaultRole: resolver.DefaultRole(),
		}),
	)

	generator, err := rest.NewGenerator(rest.Config{
		Registry: registry,
		Stores:   stores,
		Loader:   loader,
		Resolver: resolver,
		Cache:    responseCache,
		Logger:   logger,
		Prefix:   cfg.Server.APIPrefix,
	})
	if err != nil {
		return nil, err
	}
	if err := generator.Mount(table); err != nil {
		return nil, err
	}

	surface, err := graph.New(graph.Config{
		Registry: registry,
		Stores:   stores,
		Loader:   loader,
		Resolver: resolver,
		Cache:    responseCache,
		Logger:   logger,
		Endpoint: cfg.Server.APIPrefix + "/graphql/",
		GraphiQL: cfg.Server.GraphiQL,
	})
	if err != nil {
		return nil, err
	}
	if err := surface.Mount(table); err != nil {
		return nil, err
	}

	if err := table.Handle("GET", "/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}, "healthz"); err != nil {
		return nil, err
	}

	return table, nil
}
