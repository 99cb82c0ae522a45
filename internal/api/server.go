package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/eshop/services/orders/config"
	"example.com/eshop/services/orders/internal/api/handlers"
	"example.com/eshop/services/orders/internal/metrics"
	"example.com/eshop/services/orders/internal/services"
	"example.com/eshop/services/orders/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config          config.Config
	router          *gin.Engine
	httpServer      *http.Server
	orderService    *services.OrderService
	productService  *services.ProductService
	settingsService *services.SettingsService
	exportService   *services.ExportService
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	orderService *services.OrderService,
	productService *services.ProductService,
	settingsService *services.SettingsService,
	exportService *services.ExportService,
	collector *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:          cfg,
		orderService:    orderService,
		productService:  productService,
		settingsService: settingsService,
		exportService:   exportService,
		metrics:         collector,
		tracer:          tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:         cfg.HTTPServerAddress,
		Handler:      router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Recovery middleware
	router.Use(gin.Recovery())
	router.Use(s.requestMetrics())

	// Register handlers
	orderHandler := handlers.NewOrderHandler(s.orderService, s.exportService, s.metrics, s.tracer)
	orderHandler.RegisterRoutes(router)

	productHandler := handlers.NewProductHandler(s.productService, s.orderService)
	productHandler.RegisterRoutes(router)

	settingsHandler := handlers.NewSettingsHandler(s.settingsService)
	settingsHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.tracer)
	metricsHandler.RegisterRoutes(router)

	return router
}

// requestMetrics counts requests per status class and records latency.
func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start).Milliseconds()
		s.metrics.RecordTimer("http_request", elapsed)
		s.metrics.IncrementCounter("http_requests_" + strconv.Itoa(c.Writer.Status()/100) + "xx")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.HTTPServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
