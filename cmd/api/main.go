package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	appHTTP "github.com/cmlabs-hris/payroll-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/idempotency"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/payroll-engine-go/internal/service/attendance"
	locationService "github.com/cmlabs-hris/payroll-engine-go/internal/service/location"
	payrollService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.NewPostgreSQLDB(context.Background(), cfg.DatabaseURL(), database.PoolConfig{
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnIdleTime: 5 * time.Minute,
	})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Error running migrations", "error", err)
		os.Exit(1)
	}

	// Redis is optional; without it retried requests are simply re-executed.
	var idempStore idempotency.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			slog.Warn("Redis unavailable, idempotent replay disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			idempStore = idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL)
		}
		cancel()
	}

	txManager := postgresql.NewTxManager(db)
	scheduleRepo := postgresql.NewScheduleRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpirationTime)

	locationSvc := locationService.NewLocationService(scheduleRepo, attendanceRepo)
	attendanceSvc := attendanceService.NewAttendanceService(
		attendanceRepo,
		scheduleRepo,
		leaveRequestRepo,
		employeeRepo,
		locationSvc,
		attendanceService.Config{
			PartialDayMinutes:    cfg.Payroll.PartialDayMinutes,
			OpenSessionIsPartial: cfg.Payroll.OpenSessionIsPartial,
			LeaveCountsWeekends:  cfg.Payroll.LeaveCountsWeekends,
		},
	)
	payrollEvents := sse.NewHub()
	payrollSvc := payrollService.NewPayrollService(
		txManager,
		payrollRepo,
		attendanceSvc,
		payrollEvents,
		payrollService.Config{DefaultMonthUnitsDivisor: cfg.Payroll.DefaultMonthUnitsDivisor},
	)

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc, payrollEvents)
	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	locationHandler := appHTTP.NewLocationHandler(locationSvc, attendanceSvc)

	router := appHTTP.NewRouter(cfg.App, JWTService, idempStore, payrollHandler, attendanceHandler, locationHandler)

	scheduler := cron.NewScheduler()
	if cfg.Cron.Enabled {
		if err := cron.NewLocationJobs(locationSvc).RegisterJobs(scheduler, cfg.Cron.LocationRefreshInterval); err != nil {
			slog.Error("Error registering cron jobs", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	if cfg.Cron.Enabled {
		scheduler.Stop()
	}
	slog.Info("Server stopped")
}
