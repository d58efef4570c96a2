package http

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
)

const (
	appName    = "hris-attendance"
	appVersion = "v1.0.0"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	MetricsEnabled bool
}

// NewLogger builds the ECS-formatted JSON logger used for request logs and
// as the process default.
func NewLogger(out io.Writer, env string, level slog.Level) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", appName),
		slog.String("version", appVersion),
		slog.String("env", env),
	)
}

func NewRouter(JWTService jwt.Service, attendanceHandler AttendanceHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1/attendance", func(r chi.Router) {
		// EventSource cannot set headers, so the stream authenticates with
		// a query token instead of the bearer header.
		r.Get("/stream", attendanceHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Post("/clock-in", attendanceHandler.ClockIn)
			r.Post("/clock-out", attendanceHandler.ClockOut)
			r.Route("/break", func(r chi.Router) {
				r.Post("/start", attendanceHandler.StartBreak)
				r.Post("/end", attendanceHandler.EndBreak)
			})

			r.Get("/today", attendanceHandler.Today)
			r.Route("/my", func(r chi.Router) {
				r.Get("/", attendanceHandler.GetMyAttendance)
				r.Get("/summary", attendanceHandler.MySummary)
			})
			r.Post("/stream/token", attendanceHandler.StreamToken)

			// Manager or owner only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.Get("/", attendanceHandler.List)
				r.Get("/{id}", attendanceHandler.Get)
			})
		})
	})
	return r
}
