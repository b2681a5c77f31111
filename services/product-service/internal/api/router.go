package api

import (
	"net/http"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/middleware"
	"github.com/athebyme/product-composite-platform/services/product-service/internal/api/handlers"
	"github.com/athebyme/product-composite-platform/services/product-service/internal/domain/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// SetupRouter настраивает маршрутизатор
func SetupRouter(
	productService services.ProductServiceInterface,
	logger interfaces.LoggerPort,
	serviceName string,
	requestTimeout time.Duration,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Metrics)

	productHandler := handlers.NewProductHandler(productService, logger)

	r.Method(http.MethodGet, "/actuator/health", http.HandlerFunc(productHandler.Health))
	r.Get("/product/{productId}", productHandler.GetProduct)

	return r
}
