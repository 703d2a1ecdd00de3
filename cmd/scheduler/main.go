package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omsorg/care-api/internal/config"
	"github.com/omsorg/care-api/internal/email"
	"github.com/omsorg/care-api/internal/push"
	"github.com/omsorg/care-api/internal/repository/postgres"
	"github.com/omsorg/care-api/internal/scheduler"
	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/metrics"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatal(err, "invalid timezone")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("care", "scheduler")
	sender := push.NewFCMSender(cfg.Push.ServerKey, cfg.Push.Endpoint, log)
	mailer := email.NewSMTPService(cfg.Email, log)

	sched := scheduler.NewServerScheduler(
		postgres.NewPatientRepository(db),
		postgres.NewReminderRepository(db),
		postgres.NewLogEntryRepository(db),
		postgres.NewTokenRepository(db),
		postgres.NewUserRepository(db),
		postgres.NewChecklistRepository(db),
		sender, mailer, m, log, loc, cfg.Scheduler,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Scheduler.HealthPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error(err, "health listener exited")
		}
	}()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	sched.Start(ctx)
}
