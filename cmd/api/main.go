package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/superstorecomercio/novoguia-notifier/internal/config"
	"github.com/superstorecomercio/novoguia-notifier/internal/email"
	"github.com/superstorecomercio/novoguia-notifier/internal/handler"
	pipelineHandler "github.com/superstorecomercio/novoguia-notifier/internal/handler/pipeline"
	"github.com/superstorecomercio/novoguia-notifier/internal/render"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository/postgres"
	"github.com/superstorecomercio/novoguia-notifier/internal/router"
	"github.com/superstorecomercio/novoguia-notifier/internal/service/dispatcher"
	"github.com/superstorecomercio/novoguia-notifier/internal/service/enqueuer"
	"github.com/superstorecomercio/novoguia-notifier/internal/tracking"
	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
	"github.com/superstorecomercio/novoguia-notifier/pkg/messaging"
	redisbroker "github.com/superstorecomercio/novoguia-notifier/pkg/messaging/redis"
	"github.com/superstorecomercio/novoguia-notifier/pkg/metrics"
)

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

	m := metrics.New("notifier")

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

	healthH := handler.NewHealthHandler(base.GetDB())
	pipelineH := pipelineHandler.NewHandler(dispatchSvc, enqueueSvc, notificationRepo)

	r := router.New(router.Config{}, healthH, pipelineH)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "graceful shutdown failed")
		os.Exit(1)
	}
}
