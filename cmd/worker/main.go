package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/superstorecomercio/novoguia-notifier/internal/config"
	"github.com/superstorecomercio/novoguia-notifier/internal/email"
	"github.com/superstorecomercio/novoguia-notifier/internal/render"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository/postgres"
	"github.com/superstorecomercio/novoguia-notifier/internal/service/dispatcher"
	"github.com/superstorecomercio/novoguia-notifier/internal/service/enqueuer"
	"github.com/superstorecomercio/novoguia-notifier/internal/tracking"
	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
	"github.com/superstorecomercio/novoguia-notifier/pkg/messaging"
	redisbroker "github.com/superstorecomercio/novoguia-notifier/pkg/messaging/redis"
	"github.com/superstorecomercio/novoguia-notifier/pkg/metrics"
)

// invocationTimeout bounds one scheduled scan or dispatch run.
const invocationTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
	})

	loc, err := time.LoadLocation(cfg.Pipeline.BusinessTimezone)
	if err != nil {
		appLogger.Fatal(err, "invalid business timezone")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	var broker messaging.Broker = messaging.NopBroker{}
	if cfg.Redis.Enabled {
		broker, err = redisbroker.NewBroker(redisbroker.Config{URL: cfg.Redis.URL}, &appLogger.ZL)
		if err != nil {
			appLogger.Fatal(err, "failed to create Redis broker")
		}
		defer broker.Close()
	}

	m := metrics.New("notifier_worker")

	base := postgres.NewBaseRepository(db)
	notificationRepo := postgres.NewNotificationRepository(base)
	templateRepo := postgres.NewTemplateRepository(base)
	campaignRepo := postgres.NewCampaignRepository(base)
	companyRepo := postgres.NewCompanyRepository(base)
	quoteRepo := postgres.NewQuoteRequestRepository(base)

	trackingSvc := tracking.NewService(notificationRepo, cfg.Pipeline.TrackingPrefix, appLogger, m)
	renderer := render.NewRenderer(trackingSvc, templateRepo, loc, cfg.Pipeline.TemplateCacheTTL)
	transport := email.NewSMTPTransport(cfg.SMTP)

	enqueueSvc := enqueuer.NewService(notificationRepo, campaignRepo, companyRepo,
		trackingSvc, broker, loc, appLogger, m)
	dispatchSvc := dispatcher.NewService(notificationRepo, campaignRepo, companyRepo,
		quoteRepo, renderer, transport, broker, dispatcher.Config{
			BatchLimit:       cfg.Pipeline.BatchLimit,
			MaxAttempts:      cfg.Pipeline.MaxAttempts,
			OperationTimeout: cfg.Pipeline.OperationTimeout,
			FromAddress:      cfg.SMTP.FromAddress,
			FromName:         cfg.SMTP.FromName,
			ReplyTo:          cfg.SMTP.ReplyTo,
		}, appLogger, m)

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down")
		cancel()
	}()

	go func() {
		if err := messaging.LogEvents(ctx, broker, appLogger); err != nil && ctx.Err() == nil {
			appLogger.Error(err, "lifecycle event log stopped")
		}
	}()

	go runScanLoop(ctx, enqueueSvc, cfg.Pipeline.ScanHour, loc, appLogger)
	runDispatchLoop(ctx, dispatchSvc, cfg.Pipeline.DispatchInterval, appLogger)
}

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}

// runDispatchLoop triggers one bounded batch per interval.
func runDispatchLoop(ctx context.Context, svc *dispatcher.Service, interval time.Duration, appLogger *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	appLogger.Info("dispatch loop started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			appLogger.Info("dispatch loop stopped")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, invocationTimeout)
			if _, err := svc.RunBatch(runCtx, nil, 0); err != nil {
				appLogger.Error(err, "dispatch run failed")
			}
			cancel()
		}
	}
}

// runScanLoop fires the enqueue scan once per day at scanHour in the
// business timezone.
func runScanLoop(ctx context.Context, svc *enqueuer.Service, scanHour int, loc *time.Location, appLogger *logger.Logger) {
	appLogger.Info("scan loop started", "hour", scanHour)
	for {
		timer := time.NewTimer(time.Until(nextScanTime(time.Now(), scanHour, loc)))
		select {
		case <-ctx.Done():
			timer.Stop()
			appLogger.Info("scan loop stopped")
			return
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(ctx, invocationTimeout)
			if _, err := svc.Scan(runCtx); err != nil {
				appLogger.Error(err, "scan run failed")
			}
			cancel()
		}
	}
}

func nextScanTime(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
