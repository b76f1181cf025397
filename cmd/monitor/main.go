package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collabhunts/internal/api"
	"collabhunts/internal/config"
	"collabhunts/internal/database"
	"collabhunts/internal/domain"
	"collabhunts/internal/events"
	"collabhunts/internal/export"
	"collabhunts/internal/logging"
	"collabhunts/internal/mailer"
	"collabhunts/internal/metrics"
	"collabhunts/internal/monitor"
	"collabhunts/internal/notify"
	"collabhunts/internal/runlock"
	"collabhunts/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locker := initRunLocker(ctx, cfg, logger)

	eventBus := events.NewEventBus()
	subscribeMetricEvents(eventBus, logger)

	retry := notify.DefaultRetryPolicy()
	inserter := notify.NewInserter(db, eventBus, retry, logger)

	var mail domain.Mailer = mailer.Noop{}
	if cfg.Monitor.EmailEnabled {
		mail = mailer.NewLogMailer(logger)
	}

	deliveryMonitor := monitor.NewDeliveryMonitor(db, inserter, eventBus, mail, cfg.Monitor.AppBaseURL, logger)
	disputeMonitor := monitor.NewDisputeMonitor(db, inserter, eventBus, mail, cfg.Monitor.AppBaseURL, logger)

	if cfg.Monitor.Enabled {
		sched := scheduler.New(cfg.Monitor, deliveryMonitor, disputeMonitor, locker, logger)
		go sched.Start(ctx)
	}

	if cfg.API.Enabled {
		exporter := export.NewEscrowExporter(cfg.Exports, db, logger)
		apiServer := api.NewHTTPServer(cfg.API, api.Deps{
			Delivery: deliveryMonitor,
			Dispute:  disputeMonitor,
			Store:    db,
			Reporter: exporter,
		}, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Monitoring.PrometheusEnabled {
		go servePrometheus(cfg.Monitoring, logger)
	}

	logger.Info().Msg("monitor service started")
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}

// initRunLocker returns a redis-backed locker when redis is configured
// and reachable, otherwise the noop locker. A dead redis at startup is
// not fatal: the conditional updates keep state transitions safe.
func initRunLocker(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.RunLocker {
	if !cfg.Redis.Enabled {
		return runlock.NoopLocker{}
	}

	client := runlock.NewRedisClient(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, falling back to in-process run lock")
		return runlock.NoopLocker{}
	}

	logger.Info().Str("address", cfg.Redis.Address).Msg("redis run lock enabled")
	return runlock.NewRedisLocker(client, logger)
}

// subscribeMetricEvents bridges domain events onto Prometheus counters.
func subscribeMetricEvents(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.EventBookingAutoReleased, func(*events.Event) error {
		metrics.IncAutoReleased()
		return nil
	})
	bus.Subscribe(events.EventDisputeEscalated, func(*events.Event) error {
		metrics.IncDisputeEscalated()
		return nil
	})
	bus.Subscribe(events.EventBookingReviewReminder, func(e *events.Event) error {
		var payload struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		metrics.IncReminder(payload.Kind)
		return nil
	})
	bus.Subscribe(events.EventDisputeReminderSent, func(e *events.Event) error {
		var payload events.DisputeEventPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		metrics.IncReminder("dispute_" + payload.Stage)
		return nil
	})
	bus.Subscribe(events.EventNotificationsInserted, func(e *events.Event) error {
		var payload struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		metrics.AddNotificationsInserted(payload.Count)
		return nil
	})
	logger.Debug().Msg("metric event subscriptions registered")
}

func servePrometheus(cfg config.MonitoringConfig, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.PrometheusPort)
	logger.Info().Str("addr", addr).Msg("prometheus metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("prometheus server error")
	}
}
