package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/clinicaviva/agenda-api/internal/config"
	"github.com/clinicaviva/agenda-api/internal/repository/postgres"
	"github.com/clinicaviva/agenda-api/pkg/logger"
	"github.com/clinicaviva/agenda-api/pkg/metrics"
	"github.com/clinicaviva/agenda-api/pkg/worker"
)

// workerConfig is read from the environment; the background workers
// deploy separately from the API and carry no config file.
type workerConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	AuditRetentionDays   int           `envconfig:"AUDIT_RETENTION_DAYS" default:"365"`
	AuditCleanupInterval time.Duration `envconfig:"AUDIT_CLEANUP_INTERVAL" default:"24h"`
	MirrorSyncInterval   time.Duration `envconfig:"MIRROR_SYNC_INTERVAL" default:"24h"`

	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"clinicaviva"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics(cfg.MetricsNamespace, "worker")

	auditWorker := worker.NewAuditCleanupWorker(
		postgres.NewAuditRepository(db, m),
		cfg.AuditRetentionDays,
		cfg.AuditCleanupInterval,
		appLogger,
	)
	mirrorWorker := worker.NewMirrorSyncWorker(
		postgres.NewAppointmentRepository(db, m),
		postgres.NewProfessionalRepository(db, m),
		postgres.NewMirrorRepository(db, m),
		cfg.MirrorSyncInterval,
		appLogger,
		m,
	)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		auditWorker.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		mirrorWorker.Start(ctx)
	}()
	log.Info().Msg("workers started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down workers")

	cancel()
	wg.Wait()
	log.Info().Msg("workers stopped")
}
