// cmd/funnel-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jackhunterking/renoassist-forms/internal/api"
	commonaws "github.com/jackhunterking/renoassist-forms/internal/common/aws"
	"github.com/jackhunterking/renoassist-forms/internal/common/capi"
	"github.com/jackhunterking/renoassist-forms/internal/common/config"
	"github.com/jackhunterking/renoassist-forms/internal/common/database"
	"github.com/jackhunterking/renoassist-forms/internal/common/geocode"
	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/common/observability"
	"github.com/jackhunterking/renoassist-forms/internal/common/storage"
	"github.com/jackhunterking/renoassist-forms/internal/common/xano"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/controller"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/conversion"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/draft"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/notify"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/session"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/submission"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting funnel server...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("funnel-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
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

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional analytics sink) ---
	var analytics *session.Analytics
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, step analytics disabled", zap.Error(err))
		} else {
			analytics = session.NewAnalytics(esClient.Client, cfg.Database.Elasticsearch.EventIndex)
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Funnel core ---
	kv := storage.NewRedisKV(redisClient.GetClient())
	drafts := draft.NewStore(kv, time.Duration(cfg.Funnel.DraftTTL)*time.Hour, log)
	tracker := session.NewTracker(session.NewStore(pg.GetDB()), analytics, log)
	sessionTTL := time.Duration(cfg.Funnel.SessionTTL) * time.Hour

	// --- Conversion tracking (optional) ---
	var capiSender conversion.EventSender
	if cfg.Integrations.Meta.Enabled {
		capiSender = capi.NewClient(
			cfg.Integrations.Meta.EndpointURL,
			cfg.Integrations.Meta.AccessToken,
			cfg.Integrations.Meta.PixelID,
			time.Duration(cfg.Integrations.Meta.Timeout)*time.Millisecond,
		)
	}
	conversions := conversion.New(models.FunnelBasement, capiSender, kv, tracker, "Basement Renovation Funnel", sessionTTL, log)

	ctrl := controller.New(models.FunnelBasement, drafts, tracker, kv, conversions, sessionTTL, log)

	// --- Ops notifications (optional channels) ---
	var sesClient notify.SESService
	var snsClient notify.SNSService
	if cfg.Integrations.AWS.SES.Enabled {
		client, err := commonaws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Warn("SES init failed, email notifications disabled", zap.Error(err))
		} else {
			sesClient = client
		}
	}
	if cfg.Integrations.AWS.SNS.Enabled {
		client, err := commonaws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Warn("SNS init failed, SMS notifications disabled", zap.Error(err))
		} else {
			snsClient = client
		}
	}
	notifier := notify.NewOpsNotifier(&cfg.Integrations, sesClient, snsClient, log)

	// --- Submission pipeline ---
	leadAPI := xano.NewClient(
		cfg.Integrations.Xano.Endpoint,
		time.Duration(cfg.Integrations.Xano.Timeout)*time.Millisecond,
	)
	inquiries := submission.NewInquiryStore(pg.GetDB())
	orchestrator := submission.NewOrchestrator(models.FunnelBasement, drafts, tracker, inquiries, leadAPI, notifier, conversions, obs, log)

	geocoder := geocode.NewClient(
		cfg.Integrations.Geocode.BaseURL,
		cfg.Integrations.Geocode.CountryCode,
		time.Duration(cfg.Integrations.Geocode.Timeout)*time.Millisecond,
	)

	// --- HTTP server ---
	handlers := api.NewHandlers(models.FunnelBasement, ctrl, tracker, orchestrator, geocoder, log)
	server := api.NewServer(cfg, handlers, log)

	go func() {
		if err := server.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Funnel server started",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	// --- Wait for shutdown signal ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}

	zapLog.Info("Funnel server stopped")
}
