package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/idempotency"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	appConfig config.AppConfig,
	JWTService jwt.Service,
	idempStore idempotency.Store,
	payrollHandler PayrollHandler,
	attendanceHandler AttendanceHandler,
	locationHandler LocationHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(appConfig.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("version", "v1.0.0"),
		slog.String("env", appConfig.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appConfig.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.IdempotencyKeyHeader},
		ExposedHeaders:   []string{"Link", "Content-Disposition", middleware.ReplayedHeader},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// EventSource cannot set headers, so the stream also takes ?token=.
		r.With(
			jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, tokenFromQuery),
			middleware.AuthRequired,
		).Get("/events/payroll", payrollHandler.StreamEvents)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.Idempotency(idempStore))

			r.Route("/payroll", func(r chi.Router) {
				r.Get("/", payrollHandler.GetPayroll)

				r.Route("/runs/{id}", func(r chi.Router) {
					r.Patch("/", payrollHandler.UpdateRunSettings)
					r.Post("/finalize", payrollHandler.FinalizeRun)
					r.Post("/mark-all-paid", payrollHandler.MarkAllPaid)
					r.Get("/export", payrollHandler.ExportRun)
				})

				r.Route("/items/{id}", func(r chi.Router) {
					r.Put("/paid", payrollHandler.SetItemPaid)

					r.Route("/allowances", func(r chi.Router) {
						r.Get("/", payrollHandler.ListAllowances)
						r.Put("/", payrollHandler.ReplaceAllowances)
						r.Post("/", payrollHandler.AddAllowance)
						r.Patch("/{allowanceId}", payrollHandler.UpdateAllowance)
						r.Delete("/{allowanceId}", payrollHandler.RemoveAllowance)
					})
				})
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/aggregate", attendanceHandler.Aggregate)
				r.Post("/clock-in", attendanceHandler.ClockIn)
				r.Post("/clock-out", attendanceHandler.ClockOut)
				r.Put("/locum-bookings/{id}/status", attendanceHandler.RecordLocumStatus)
			})

			r.Route("/locations", func(r chi.Router) {
				r.Get("/resolve", locationHandler.Resolve)
				r.Get("/issues", locationHandler.ListIssues)
				r.Post("/bookings/refresh-cache", locationHandler.RefreshBookingCache)
				r.Post("/facts/{kind}/{id}/repair", locationHandler.RepairFact)
			})
		})
	})
	return r
}

func tokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}
