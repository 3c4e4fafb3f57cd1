// Command server wires the academy backend: config, storage, services,
// handlers, the audit worker and the HTTP listener.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"arabesque/internal/audit"
	audithandler "arabesque/internal/audit/handler"
	"arabesque/internal/auth"
	authhandler "arabesque/internal/auth/handler"
	"arabesque/internal/auth/lockout"
	billinghandler "arabesque/internal/billing/handler"
	billingservice "arabesque/internal/billing/service"
	billingstore "arabesque/internal/billing/store"
	bookinghandler "arabesque/internal/booking/handler"
	bookingservice "arabesque/internal/booking/service"
	bookingstore "arabesque/internal/booking/store"
	identityhandler "arabesque/internal/identity/handler"
	identityservice "arabesque/internal/identity/service"
	identitystore "arabesque/internal/identity/store"
	"arabesque/internal/platform/config"
	"arabesque/internal/platform/httpserver"
	"arabesque/internal/platform/logger"
	"arabesque/internal/platform/metrics"
	"arabesque/internal/platform/postgres"
	redisplatform "arabesque/internal/platform/redis"
	schedulinghandler "arabesque/internal/scheduling/handler"
	schedulingservice "arabesque/internal/scheduling/service"
	schedulingstore "arabesque/internal/scheduling/store"
	transporthttp "arabesque/internal/transport/http"
)

const auditBufferSize = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Storage. Without DATABASE_URL everything runs on in-memory stores,
	// which is enough for local frontend development.
	var (
		identityStore   identitystore.Store
		bookingReads    bookingservice.ListStore
		bookingTx       bookingservice.Tx
		bookingUpcoming identityservice.BookingChecker
		scheduleStore   schedulingstore.Store
		billStore       billingstore.Store
		auditStore      audit.Store
	)
	db, dbErr := openDatabase(ctx, cfg, log)
	if dbErr != nil {
		return dbErr
	}
	if db != nil {
		defer db.Close()
		pgBookings := bookingstore.NewPostgres(db)
		identityStore = identitystore.NewPostgres(db)
		bookingReads = pgBookings
		bookingTx = newBookingPostgresTx(db)
		bookingUpcoming = pgBookings
		scheduleStore = schedulingstore.NewPostgres(db)
		billStore = billingstore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		users := identitystore.NewInMemory()
		memBookings := bookingstore.NewInMemory(users)
		identityStore = users
		bookingReads = memBookings
		bookingTx = bookingstore.NewMemoryTx(memBookings)
		bookingUpcoming = memBookings
		memCourses := schedulingstore.NewInMemory()
		memCourses.MirrorCourses(memBookings)
		scheduleStore = memCourses
		billStore = billingstore.NewInMemory(users)
		auditStore = audit.NewInMemoryStore()
	}

	// Login lockout, shared across instances when Redis is configured.
	var lockoutStore lockout.Store
	redisClient, err := redisplatform.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		lockoutStore = lockout.NewRedis(redisClient.Client, cfg.LockoutWindow)
	} else {
		lockoutStore = lockout.NewInMemory(cfg.LockoutWindow)
	}

	// Audit pipeline: non-blocking publisher, one worker, optional Kafka feed.
	inbox := make(chan audit.Event, auditBufferSize)
	trail := audit.NewPublisher(inbox, log, m.AuditDropped)
	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	}
	auditWorker := audit.NewWorker(auditStore, sink, inbox, log)

	// Services.
	tokens := auth.NewTokenService(cfg.JWTSecret, "arabesque", cfg.TokenTTL)
	lockouts := lockout.NewService(lockoutStore, cfg.LockoutThreshold, log)
	identitySvc := identityservice.NewService(identityStore, bookingUpcoming, trail, m)
	loginSvc := auth.NewLoginService(identitySvc, lockouts, tokens, m)
	bookingSvc := bookingservice.NewService(bookingTx, bookingReads, trail, m)
	schedulingSvc := schedulingservice.NewService(scheduleStore)
	billingSvc := billingservice.NewService(billStore, trail)

	router := transporthttp.New(
		transporthttp.Deps{
			Logger:    log,
			Metrics:   m,
			Registry:  registry,
			Validator: tokens,
			DB:        db,
		},
		transporthttp.Handlers{
			Auth:       authhandler.New(loginSvc, log),
			Identity:   identityhandler.New(identitySvc, log),
			Scheduling: schedulinghandler.New(schedulingSvc, log),
			Booking:    bookinghandler.New(bookingSvc, log),
			Billing:    billinghandler.New(billingSvc, log),
			Audit:      audithandler.New(auditStore, log),
		},
	)

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return auditWorker.Run(ctx)
	})
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func openDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("database migrations applied")
	}
	return db, nil
}
