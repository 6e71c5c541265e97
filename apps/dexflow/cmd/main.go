package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/api"
	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/config"
	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/notify"
	"dexflow/apps/dexflow/internal/oracle"
	"dexflow/apps/dexflow/internal/repository"
	"dexflow/apps/dexflow/internal/stage"
	"dexflow/apps/dexflow/internal/tokens"
)

func main() {
	// Initialize zap logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Load configuration from environment variables
	cfg := config.NewConfig()

	logger.Info("Starting application with configuration",
		zap.String("rpc_url", cfg.RpcURL),
		zap.String("db_url", cfg.DbURL),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("router_address", cfg.RouterAddress),
		zap.Int("api_port", cfg.APIPort),
	)

	// Connect to database
	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize database tables
	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	orderRepository := repository.NewOrderRepository(db, logger)
	transactionRepository := repository.NewTransactionRepository(db, logger)
	walletRepository := repository.NewWalletRepository(db, logger)

	// Connect to Ethereum client, shared by readers and the submitter
	client, err := ethclient.Dial(cfg.RpcURL)
	if err != nil {
		logger.Fatal("Failed to connect to Ethereum client", zap.Error(err))
	}
	defer client.Close()

	reader, err := chain.NewReader(client, logger)
	if err != nil {
		logger.Fatal("Failed to create chain reader", zap.Error(err))
	}

	// Keys are stored hex-encoded; plug a real KMS decryptor here when one
	// is available.
	vault := chain.NewKeyVault(func(ciphertext string) (string, error) {
		return ciphertext, nil
	})
	submitter := chain.NewSubmitter(client, vault, cfg.ChainID, logger)
	receipts := chain.NewReceiptFetcher(client, logger)

	routerOracle, err := oracle.NewRouterOracle(client, cfg.RouterAddress, cfg.FactoryAddress, cfg.WethAddress, logger)
	if err != nil {
		logger.Fatal("Failed to create router oracle", zap.Error(err))
	}

	var registry *tokens.Registry
	if cfg.ChainID == tokens.MainnetChainID {
		registry = tokens.NewMainnetRegistry()
	} else {
		registry = tokens.NewRegistry(cfg.ChainID, cfg.WethAddress)
		registry.Register(model.Token{Symbol: tokens.NativeSymbol, ChainID: cfg.ChainID, Decimals: 18})
		registry.Register(model.Token{Symbol: "WETH", ChainID: cfg.ChainID, ContractAddress: cfg.WethAddress, Decimals: 18})
	}

	notifier, err := notify.NewKafkaNotifier(cfg.KafkaBroker, cfg.KafkaTopic, logger)
	if err != nil {
		logger.Fatal("Failed to create notifier", zap.Error(err))
	}
	defer notifier.Close()

	// Assemble the pipeline stages
	runner := stage.NewRunner([]stage.ScheduledStage{
		{
			Stage: stage.NewApprovalStage(orderRepository, transactionRepository, walletRepository,
				reader, submitter, registry, routerOracle.SpenderAddress(), logger),
			Interval: cfg.ApprovalInterval,
		},
		{
			Stage: stage.NewCriteriaStage(orderRepository, transactionRepository, walletRepository,
				submitter, routerOracle, registry, notifier, logger),
			Interval: cfg.CriteriaInterval,
		},
		{
			Stage: stage.NewExecutionStage(orderRepository, transactionRepository, walletRepository,
				submitter, routerOracle, registry, notifier, logger),
			Interval: cfg.ExecutionInterval,
		},
		{
			Stage:    stage.NewTracker(orderRepository, transactionRepository, receipts, notifier, cfg.ReceiptMaxPolls, logger),
			Interval: cfg.TrackerInterval,
		},
		{
			Stage:    stage.NewExpiryMonitor(orderRepository, notifier, cfg.ExpireUndatedOrders, logger),
			Interval: cfg.ExpiryInterval,
		},
	}, cfg.CallTimeout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runnerDone := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(runnerDone)
	}()

	// Create and start API server
	orderHandler := api.NewOrderHandler(orderRepository, transactionRepository, walletRepository, registry, logger)
	balanceHandler := api.NewBalanceHandler(reader, registry, logger)
	quoteHandler := api.NewQuoteHandler(routerOracle, registry, logger)
	apiServer := api.NewServer(cfg.APIPort, orderHandler, balanceHandler, quoteHandler, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Received shutdown signal, starting graceful shutdown...")

	cancel()

	// Create a context with timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown API server gracefully
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}

	select {
	case <-runnerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Stage loops did not drain before shutdown deadline")
	}

	logger.Info("Application shutdown complete")
}
