package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/eshop/services/orders/config"
	"example.com/eshop/services/orders/internal/api"
	"example.com/eshop/services/orders/internal/cache"
	"example.com/eshop/services/orders/internal/database"
	"example.com/eshop/services/orders/internal/eph"
	"example.com/eshop/services/orders/internal/messaging"
	"example.com/eshop/services/orders/internal/metrics"
	"example.com/eshop/services/orders/internal/repositories"
	"example.com/eshop/services/orders/internal/search"
	"example.com/eshop/services/orders/internal/services"
	"example.com/eshop/services/orders/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for the order administration frontend`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize database connection
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("Failed to close database connection")
		}
	}()

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.Disabled()
	}
	defer tracer.Close()

	// Initialize Elasticsearch client
	var indexer services.OrderIndexer
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	} else {
		indexer = elasticClient
	}

	// Initialize Service Bus publisher for order events
	var events services.EventPublisher
	if cfg.ServiceBus.ConnectionString != "" {
		serviceBus, err := messaging.NewServiceBusClient(cfg.ServiceBus)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Service Bus client, continuing without order events")
		} else {
			events = serviceBus
			defer serviceBus.Close()
		}
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()
	metricsCollector.SetHealth("database", true)

	// Initialize repositories and services
	orderRepo := repositories.NewOrderRepository(db)
	productRepo := repositories.NewProductRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	statusRepo := repositories.NewStatusRepository(db)

	orderService := services.NewOrderService(orderRepo, productRepo, statusRepo, indexer, events, tracer)
	productService := services.NewProductService(productRepo, redisCache)
	settingsService := services.NewSettingsService(settingsRepo, redisCache)
	exportService := services.NewExportService(orderRepo, eph.NewBuilder(cfg.Carrier), tracer)

	// Initialize and start the server
	server := api.NewServer(cfg, orderService, productService, settingsService, exportService, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
