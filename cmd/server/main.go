package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"clinic-api/internal/chatbot"
	"clinic-api/internal/config"
	"clinic-api/internal/email"
	"clinic-api/internal/grpchealth"
	"clinic-api/internal/handler"
	"clinic-api/internal/lock"
	"clinic-api/internal/logger"
	"clinic-api/internal/middleware"
	"clinic-api/internal/service/account"
	"clinic-api/internal/service/appointment"
	"clinic-api/internal/service/availability"
	"clinic-api/internal/service/patient"
	"clinic-api/internal/service/planner"
	"clinic-api/internal/service/site"
	"clinic-api/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:          "clinic-api",
		Short:        "Clinic scheduling API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (and gRPC health when GRPC_ADDR is set)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd.Context())
			},
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func migrate(ctx context.Context) error {
	cfg := config.MustLoad()
	log := logger.New(cfg)

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", logger.Err(err))
		return err
	}
	defer pool.Close()

	applied, err := store.New(pool).Migrate(ctx)
	if err != nil {
		log.Error("migration failed", logger.Err(err))
		return err
	}
	log.Info("migrations done", slog.Any("applied", applied))
	return nil
}

func serve(ctx context.Context) error {
	cfg := config.MustLoad()
	log := logger.New(cfg)
	log.Info("starting clinic-api", slog.String("address", cfg.HTTPServer.Address))

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", logger.Err(err))
		return err
	}
	defer pool.Close()
	st := store.New(pool)

	if cfg.AutoMigrate {
		applied, err := st.Migrate(ctx)
		if err != nil {
			log.Error("migration failed", logger.Err(err))
			return err
		}
		if len(applied) > 0 {
			log.Info("migrations applied", slog.Any("versions", applied))
		}
	}

	locker, err := newLocker(cfg, log)
	if err != nil {
		return err
	}
	defer locker.Close()

	mailer := email.New(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Pass:     cfg.SMTP.Pass,
		FromName: cfg.SMTP.FromName,
		Timeout:  10 * time.Second,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Close()

	h := handler.New(handler.Deps{
		Log:         log,
		Secret:      cfg.JWT.Secret,
		Debug:       cfg.IsDevelopment(),
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		DB:          st,
		Accounts: account.New(st, mailer, account.Config{
			Secret:      cfg.JWT.Secret,
			TokenTTL:    cfg.JWT.TokenTTL(),
			ResetTTL:    cfg.JWT.ResetTokenTTL(),
			FrontendURL: cfg.FrontendURL,
			ClinicName:  cfg.SMTP.FromName,
		}, log),
		Appointments: appointment.New(st, locker),
		Planner:      planner.New(st),
		Patients:     patient.New(st),
		Site:         site.New(st),
		Availability: availability.New(st),
		Chatbot:      chatbot.New(cfg.ChatbotIntentsPath, log),
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      h.Router(),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		log.Info("http server listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("http: %w", err)
		}
	}()

	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Error("grpc listen failed", logger.Err(err))
			return err
		}
		grpcSrv = grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.UnaryRateLimit(limiter)))
		checker := grpchealth.New(st, log, 15*time.Second)
		checker.Register(grpcSrv)
		go checker.Run(healthCtx)
		go func() {
			log.Info("grpc health listening", slog.String("address", cfg.GRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				serverErrCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case runErr = <-serverErrCh:
		log.Error("server failed", logger.Err(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	stopHealth()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
		if runErr == nil {
			runErr = err
		}
	}
	log.Info("server stopped")
	return runErr
}

func newLocker(cfg *config.Config, log *slog.Logger) (lock.Locker, error) {
	if cfg.Redis.Addr == "" {
		log.Info("appointment locks are in-process")
		return lock.NewLocal(), nil
	}
	l, err := lock.NewRedisLock(cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		log.Error("redis unavailable", logger.Err(err))
		return nil, err
	}
	log.Info("appointment locks use redis", slog.String("addr", cfg.Redis.Addr))
	return l, nil
}
