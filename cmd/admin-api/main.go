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

	"go.uber.org/zap"

	"accelerator-admin/internal/analytics"
	"accelerator-admin/internal/api"
	"accelerator-admin/internal/audit"
	"accelerator-admin/internal/cache"
	"accelerator-admin/internal/common/auth"
	awsclient "accelerator-admin/internal/common/aws"
	"accelerator-admin/internal/common/camunda"
	"accelerator-admin/internal/common/config"
	"accelerator-admin/internal/common/database"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/engine/transition"
	"accelerator-admin/internal/notify"
	"accelerator-admin/internal/store"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "admin-api"})

	zapLog.Info("Starting admin API...", zap.String("environment", cfg.App.Environment))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	var checks []api.Check
	checks = append(checks, api.Check{Name: "postgres", Run: pg.Ping})

	// --- Redis (optional read cache) ---
	var readCache *cache.Cache
	if cfg.Database.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, serving without cache", zap.Error(err))
		} else {
			defer rdb.Close()
			readCache = cache.New(rdb.Client, "admin:", log)
			checks = append(checks, api.Check{Name: "redis", Run: rdb.Ping})
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Audit sinks ---
	var sinks audit.MultiSink
	if cfg.Audit.Postgres {
		sinks = append(sinks, audit.NewPostgresSink(pg.DB))
	}
	if cfg.Audit.Elasticsearch && cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, audit trail limited to other sinks", zap.Error(err))
		} else {
			sinks = append(sinks, audit.NewElasticsearchSink(es.Client, cfg.Database.Elasticsearch.AuditIndex))
			checks = append(checks, api.Check{Name: "elasticsearch", Run: es.Ping})
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Notification transport ---
	var notifier transition.Notifier
	if cfg.Notifications.Transport == "workflow" && cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		notifier = notify.NewWorkflowNotifier(zeebe, cfg.Camunda.ProcessID, log)
		checks = append(checks, api.Check{Name: "zeebe", Run: zeebe.HealthCheck})
		zapLog.Info("Zeebe client connected successfully")
	} else {
		if cfg.Notifications.Transport == "workflow" {
			zapLog.Warn("workflow transport requested but camunda is disabled, sending directly")
		}
		var sesClient awsclient.SESService
		if cfg.Integrations.AWS.SES.Enabled {
			s, _, err := awsclient.NewClients(ctx, cfg.Integrations.AWS.Region)
			if err != nil {
				zapLog.Fatal("aws client init failed", zap.Error(err))
			}
			sesClient = s
		}
		mailer := notify.NewMailer(sesClient, cfg.Integrations.AWS.SES.FromEmail, cfg.Integrations.AWS.SES.Enabled)
		notifier = notify.NewDirectNotifier(mailer, log)
	}

	// --- Domain services ---
	sources := store.NewSourceStore(pg.DB, log)
	fetcher := store.NewFetcher(sources, config.GetDuration(cfg.Aggregation.FetchTimeout), log)

	svc := analytics.NewService(analytics.Config{
		SampleFallback: cfg.Analytics.SampleFallback,
		Resilient:      cfg.Aggregation.Resilient,
		CacheTTL:       cfg.Analytics.CacheTTLDuration(),
		MonthlyWindow:  cfg.Analytics.MonthlyWindow,
	}, store.NewAnalyticsStore(pg.DB), fetcher, readCache, log)

	authority := transition.New(transition.Config{
		NotifyTimeout: config.GetDuration(cfg.Notifications.Timeout),
	}, sources, sinks, notifier, readCache, log)

	// --- Auth ---
	var resolver auth.IdentityResolver
	switch cfg.Auth.Mode {
	case "keycloak":
		resolver = auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
			5*time.Second,
		)
	default:
		resolver = auth.NewJWTVerifier(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.Audience)
	}
	authorizer := auth.NewRoleAuthorizer(cfg.Auth.AdminUserIDs, cfg.Auth.AdminRole, pg.DB, readCache, cfg.Auth.RoleCacheTTLDuration(), log)

	limiter := api.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log)
	go limiter.RunEviction(ctx, time.Minute)

	server := api.NewServer(api.Config{
		RequestTimeout: cfg.Server.RequestTimeoutDuration(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, svc, authority, resolver, authorizer, limiter, checks, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Admin API listening", zap.String("address", cfg.Server.Address), zap.String("authMode", cfg.Auth.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("admin API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down admin API", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		authority.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		zapLog.Warn("notifications still in flight at shutdown")
	}

	zapLog.Info("Admin API stopped")
}
