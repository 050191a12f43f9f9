package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vestia/catalog-service/internal/service"
	"github.com/vestia/catalog-service/pkg/health"
	"github.com/vestia/catalog-service/pkg/middleware"
)

// NewRouter creates a chi router with all catalog service routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	healthHandler *health.Handler,
	corsConfig middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("catalog"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Product API endpoints
	productHandler := NewProductHandler(catalogService, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		// /search must be registered before /{id} so chi does not treat
		// "search" as an id.
		r.Get("/search", productHandler.SearchProducts)
		r.Get("/", productHandler.ListProducts)
		r.Post("/", productHandler.CreateProduct)
		r.Get("/{id}", productHandler.GetProduct)
		r.Put("/{id}", productHandler.UpdateProduct)
		r.Delete("/{id}", productHandler.DeleteProduct)
	})

	return r
}
