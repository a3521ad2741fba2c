package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fanvault/reconciler/internal/adapter"
	"github.com/fanvault/reconciler/internal/api/middleware"
	"github.com/fanvault/reconciler/internal/api/server"
	"github.com/fanvault/reconciler/internal/config"
	"github.com/fanvault/reconciler/internal/keyvault"
	"github.com/fanvault/reconciler/internal/logger"
	"github.com/fanvault/reconciler/internal/providers/ethereum"
	"github.com/fanvault/reconciler/internal/providers/rates"
	"github.com/fanvault/reconciler/internal/reconcile"
	"github.com/fanvault/reconciler/internal/store"
	"github.com/fanvault/reconciler/internal/txmine"
	"github.com/fanvault/reconciler/internal/wallet"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "reconciler-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting FanVault reconciler API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	// Dial the ledger endpoints
	dialer := adapter.NewEthClientDialer()
	primary, err := dialer.Dial(ctx, cfg.Ethereum.PrimaryRPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial primary RPC endpoint", zap.Error(err))
	}
	var secondary adapter.EthClient
	if cfg.Ethereum.SecondaryRPCURL != "" {
		secondary, err = dialer.Dial(ctx, cfg.Ethereum.SecondaryRPCURL)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to dial secondary RPC endpoint", zap.Error(err))
		}
	} else {
		logger.WarnCtx(ctx, "Secondary RPC endpoint not configured, no rate-limit failover")
	}
	ledger := ethereum.NewClient(cfg.Ethereum.AssetContract, primary, secondary)
	defer ledger.Close()

	// Assemble the reconciliation pipeline
	resolver := keyvault.NewResolver(dataStore, cfg.KeyVault.Secret, cfg.KeyVault.Iterations)
	factories := wallet.DefaultDescriptors(cfg.Ethereum.BeaconFactoryAddress, cfg.Ethereum.SimpleFactoryAddress)
	deriver := wallet.NewDeriver(ledger, factories, cfg.Worker.PoolSize)
	defer deriver.Close()
	miner := txmine.NewMiner(dataStore, ledger, cfg.Worker.PoolSize)
	defer miner.Close()
	builder := reconcile.NewCandidateBuilder(dataStore, resolver, deriver, miner)

	fanOut := reconcile.NewFanOut(ledger, cfg.Worker.PoolSize, float64(cfg.Worker.RequestsPerSecond))
	httpClient := adapter.NewHTTPClient(cfg.Rates.HTTPTimeout)
	ratesClient := rates.NewClient(cfg.Rates.URL, httpClient)
	enricher := reconcile.NewEnricher(ledger, ratesClient, cfg.Ethereum.TreasuryAddress)

	engine := reconcile.NewEngine(builder, fanOut, enricher, adapter.NewClock(), cfg.Ethereum.DerivationMaxIndex)
	defer engine.Close()

	// Create server config
	serverConfig := server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		RequestTimeout: cfg.Ethereum.RequestTimeout,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, engine)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
