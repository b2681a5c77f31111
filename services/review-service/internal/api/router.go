package api

import (
	"time"

	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/middleware"
	"github.com/athebyme/product-composite-platform/services/review-service/internal/api/handlers"
	"github.com/athebyme/product-composite-platform/services/review-service/internal/domain/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// SetupRouter настраивает маршрутизатор
func SetupRouter(service services.ReviewServiceInterface, logger interfaces.LoggerPort, serviceName string, requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Metrics)

	h := handlers.NewReviewHandler(service, logger)
	r.Get("/actuator/health", h.Health)
	r.Get("/review", h.GetReviews)

	return r
}
