package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/eshop/services/orders/config"
	"example.com/eshop/services/orders/internal/database"
	"example.com/eshop/services/orders/internal/messaging"
	"example.com/eshop/services/orders/internal/repositories"
	"example.com/eshop/services/orders/internal/search"
	"example.com/eshop/services/orders/internal/services"
	"example.com/eshop/services/orders/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that reconciles the order search index`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

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

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.Disabled()
	}
	defer tracer.Close()

	// The reconciliation worker is pointless without a search backend, so a
	// failed Elasticsearch connection is fatal here.
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		return err
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

	// Initialize repositories and services
	orderRepo := repositories.NewOrderRepository(db)
	productRepo := repositories.NewProductRepository(db)
	statusRepo := repositories.NewStatusRepository(db)

	orderService := services.NewOrderService(orderRepo, productRepo, statusRepo, elasticClient, events, tracer)

	// Start the search index reconciliation cron job
	g.Go(func() error {
		log.Info().Msg("Starting search index reconciliation job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Orders created or changed while Elasticsearch was unreachable stay
		// flagged as unindexed; this job catches up on them.
		_, err = scheduler.NewJob(
			gocron.DurationJob(5*time.Minute),
			gocron.NewTask(func() {
				log.Info().Msg("Running search index reconciliation")
				if err := orderService.ReconcileSearchIndex(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reconcile search index")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
