package api

import (
	"net/http"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/auth"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/middleware"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/api/handlers"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Роли, проверяемые при включенной аутентификации
const (
	RoleRead  = "product:read"
	RoleWrite = "product:write"
)

// RouterOptions настройки маршрутизатора
type RouterOptions struct {
	ServiceName        string
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
	// Auth nil отключает проверку токенов
	Auth interfaces.AuthPort
}

// SetupRouter настраивает маршрутизатор
func SetupRouter(compositeService services.CompositeServiceInterface, logger interfaces.LoggerPort, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing(opts.ServiceName))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.CORS(opts.CORSAllowedOrigins))
	r.Use(middleware.Metrics)

	h := handlers.NewCompositeHandler(compositeService, logger)

	r.Get("/actuator/health", h.Health)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/product-composite", func(r chi.Router) {
		read, write := requireRole(opts.Auth, RoleRead), requireRole(opts.Auth, RoleWrite)
		if opts.Auth != nil {
			r.Use(auth.AuthMiddleware(opts.Auth, logger))
		}

		r.With(write).Post("/", h.CreateCompositeProduct)
		r.With(read).Get("/{productId}", h.GetCompositeProduct)
		r.With(write).Delete("/{productId}", h.DeleteCompositeProduct)
	})

	return r
}

func requireRole(authPort interfaces.AuthPort, role string) func(http.Handler) http.Handler {
	if authPort == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.RequireRole(authPort, role)
}
