package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	grpclib "google.golang.org/grpc"

	grpcadapter "github.com/simaogato/fundfolio-backend/internal/adapter/grpc"
	"github.com/simaogato/fundfolio-backend/internal/app"
	"github.com/simaogato/fundfolio-backend/internal/common"
	"github.com/simaogato/fundfolio-backend/internal/usecase/fundsync"
	"github.com/simaogato/fundfolio-backend/internal/usecase/seeder"
)

// refreshTimeout bounds one scheduled NAV refresh
const refreshTimeout = 30 * time.Minute

// configPaths allows repeated -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (repeatable, later files override earlier ones)")
}

func main() {
	flag.Parse()

	if len(configFiles) == 0 {
		configFiles = append(configFiles, "fundfolio.toml")
	}

	// 1. Load config (defaults -> files -> env -> flags)
	config, err := common.LoadConfig(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *serverPort != 0 {
		config.Server.Port = *serverPort
	}

	// 2. Logger and banner
	logger := common.InitLogger(config)
	common.PrintBanner(config)

	// 3. Storage, provider and services
	ctx := context.Background()
	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}()

	// 4. Catalog warm-up
	if len(config.Catalog.SeedCodes) > 0 {
		catalogSeeder := seeder.NewCatalogSeeder(application.SyncService, logger)
		if _, err := catalogSeeder.Seed(ctx, config.Catalog.SeedCodes); err != nil {
			logger.Warn().Err(err).Msg("Some catalog funds could not be seeded")
		}
	}

	// 5. Scheduled NAV refresh
	var scheduler *fundsync.Scheduler
	if config.Refresh.Enabled {
		scheduler, err = fundsync.NewScheduler(application.SyncService, config.Refresh.Schedule, refreshTimeout, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create refresh scheduler")
		}
		scheduler.Start()
	}

	// 6. gRPC server
	interceptors := []grpclib.UnaryServerInterceptor{grpcadapter.LoggingInterceptor(logger)}
	if config.Auth.APIToken != "" {
		interceptors = append(interceptors, grpcadapter.AuthInterceptor(config.Auth.APIToken))
	} else {
		logger.Warn().Msg("No API token configured, requests are not authenticated")
	}
	if config.Auth.OwnerTokenSecret != "" {
		interceptors = append(interceptors, grpcadapter.IdentityInterceptor([]byte(config.Auth.OwnerTokenSecret)))
	}
	grpcServer := grpclib.NewServer(grpclib.ChainUnaryInterceptor(interceptors...))

	grpcadapter.RegisterFundServiceServer(grpcServer, grpcadapter.NewServer(
		application.PortfolioService,
		application.CatalogService,
		application.SyncService,
		logger,
	))

	address := config.Server.Address()
	lis, err := net.Listen("tcp", address)
	if err != nil {
		logger.Fatal().Err(err).Str("address", address).Msg("Failed to listen")
	}

	go func() {
		logger.Info().Str("address", address).Str("service", grpcadapter.ServiceName).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server stopped with error")
		}
	}()

	waitForShutdown(grpcServer, scheduler, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down
func waitForShutdown(grpcServer *grpclib.Server, scheduler *fundsync.Scheduler, logger arbor.ILogger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	if scheduler != nil {
		scheduler.Stop()
	}
	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")
}
