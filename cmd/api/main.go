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

	"github.com/clinicaviva/agenda-api/internal/config"
	"github.com/clinicaviva/agenda-api/internal/email"
	agendaHandler "github.com/clinicaviva/agenda-api/internal/handler/agenda"
	auditHandler "github.com/clinicaviva/agenda-api/internal/handler/audit"
	clientHandler "github.com/clinicaviva/agenda-api/internal/handler/client"
	financeHandler "github.com/clinicaviva/agenda-api/internal/handler/finance"
	healthHandler "github.com/clinicaviva/agenda-api/internal/handler/health"
	professionalHandler "github.com/clinicaviva/agenda-api/internal/handler/professional"
	statsHandler "github.com/clinicaviva/agenda-api/internal/handler/stats"
	"github.com/clinicaviva/agenda-api/internal/middleware"
	"github.com/clinicaviva/agenda-api/internal/repository/postgres"
	"github.com/clinicaviva/agenda-api/internal/router"
	auditService "github.com/clinicaviva/agenda-api/internal/service/audit"
	clientService "github.com/clinicaviva/agenda-api/internal/service/client"
	financeService "github.com/clinicaviva/agenda-api/internal/service/finance"
	professionalService "github.com/clinicaviva/agenda-api/internal/service/professional"
	"github.com/clinicaviva/agenda-api/internal/service/schedule"
	statsService "github.com/clinicaviva/agenda-api/internal/service/stats"
	"github.com/clinicaviva/agenda-api/pkg/auth"
	"github.com/clinicaviva/agenda-api/pkg/logger"
	redisbroker "github.com/clinicaviva/agenda-api/pkg/messaging/redis"
	"github.com/clinicaviva/agenda-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)

	appointmentRepo := postgres.NewAppointmentRepository(db, m)
	clientRepo := postgres.NewClientRepository(db, m)
	professionalRepo := postgres.NewProfessionalRepository(db, m)
	mirrorRepo := postgres.NewMirrorRepository(db, m)
	auditRepo := postgres.NewAuditRepository(db, m)

	var notifier email.Notifier = email.NoopNotifier{}
	if cfg.SMTP.Host != "" {
		notifier = email.NewSMTPNotifier(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			AdminTo:  cfg.SMTP.AdminTo,
		})
	}

	auditSvc := auditService.NewService(auditRepo, appLogger)
	ledger := schedule.NewLedger(clientRepo, professionalRepo, notifier, appLogger, m)
	scheduleSvc := schedule.NewService(appointmentRepo, clientRepo, professionalRepo, mirrorRepo, ledger, auditSvc, broker, appLogger, m)
	clientSvc := clientService.NewService(clientRepo, professionalRepo, auditSvc, broker, appLogger)
	professionalSvc := professionalService.NewService(professionalRepo, clientRepo, appointmentRepo, mirrorRepo, auditSvc, broker, appLogger)
	financeSvc := financeService.NewService(appointmentRepo, auditSvc, appLogger)
	statsSvc := statsService.NewService(mirrorRepo, appLogger)

	tokens := auth.NewTokenService(auth.Config{
		Secret:      cfg.JWT.Secret,
		ExpiryHours: cfg.JWT.ExpiryHours,
	})
	authMW := middleware.NewAuthMiddleware(tokens)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	r := router.NewRouter(authMW, router.Handlers{
		Agenda:       agendaHandler.NewHandler(scheduleSvc, broker),
		Client:       clientHandler.NewHandler(clientSvc),
		Professional: professionalHandler.NewHandler(professionalSvc),
		Finance:      financeHandler.NewHandler(financeSvc),
		Stats:        statsHandler.NewHandler(statsSvc),
		Audit:        auditHandler.NewHandler(auditSvc),
		Health:       healthHandler.NewHandler(db),
	}, router.Config{
		CORS:         corsConfig,
		RateLimitRPS: cfg.RateLimit.RequestsPerSecond,
		RateBurst:    cfg.RateLimit.Burst,
		Timeout:      cfg.Server.Timeout(),
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
