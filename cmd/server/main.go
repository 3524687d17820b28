package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"magnify-lend.backend/internal/config"
	"magnify-lend.backend/internal/infrastructure/blockchain"
	"magnify-lend.backend/internal/infrastructure/repositories"
	"magnify-lend.backend/internal/infrastructure/telegram"
	"magnify-lend.backend/internal/infrastructure/worldid"
	"magnify-lend.backend/internal/interfaces/http/handlers"
	"magnify-lend.backend/internal/interfaces/http/middleware"
	"magnify-lend.backend/internal/usecases"
	"magnify-lend.backend/pkg/logger"
	"magnify-lend.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	runServer  = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB   = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
	setWebhook = func(ctx context.Context, bot *telegram.Client, url string) error { return bot.SetWebhook(ctx, url) }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database using GORM
	db, err := openDB(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("⚠️ Database not available: %v (endpoints will return errors)", err)
	} else {
		log.Println("✅ Connected to PostgreSQL via GORM")
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	walletRepo := repositories.NewWalletRepository(db)
	verificationRepo := repositories.NewVerificationRepository(db)
	loanRepo := repositories.NewLoanRepository(db)

	// Initialize contract encoders
	sbt, err := blockchain.NewSBTContract(cfg.Contracts.SBTAddress)
	if err != nil {
		return fmt.Errorf("sbt contract: %w", err)
	}
	collateral, err := blockchain.NewCollateralNFTContract(cfg.Contracts.CollateralNFTAddress)
	if err != nil {
		return fmt.Errorf("collateral nft contract: %w", err)
	}
	erc20, err := blockchain.NewERC20Contract(cfg.Contracts.ERC20Address)
	if err != nil {
		return fmt.Errorf("erc20 contract: %w", err)
	}
	desk, err := blockchain.NewLendingDeskContract(cfg.Contracts.LendingDeskAddress, collateral, erc20)
	if err != nil {
		return fmt.Errorf("lending desk contract: %w", err)
	}

	// Initialize blockchain clients
	clientFactory := blockchain.NewClientFactory()
	evmClient, err := clientFactory.GetEVMClient(cfg.Blockchain.RPCURL)
	if err != nil {
		return fmt.Errorf("evm client: %w", err)
	}
	bundlerClient, err := clientFactory.GetBundlerClient(
		cfg.Blockchain.RPCURL,
		common.HexToAddress(cfg.Blockchain.EntryPointAddress),
		cfg.Blockchain.ReceiptPollInterval,
	)
	if err != nil {
		return fmt.Errorf("bundler client: %w", err)
	}
	chainReader := blockchain.NewChainReader(evmClient, sbt, collateral, desk, erc20)
	logger.Info(context.Background(), "Blockchain clients ready",
		zap.String("chain_id", evmClient.ChainID().String()),
		zap.Bool("test_network", cfg.Blockchain.IsTestNetwork()),
	)

	accountParams := blockchain.AccountParams{
		Factory:      common.HexToAddress(cfg.Blockchain.AccountFactory),
		InitCodeHash: common.HexToHash(cfg.Blockchain.AccountInitCodeHash),
	}

	// Initialize external clients
	botClient := telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken)
	worldIDClient := worldid.NewClient(cfg.WorldID.AppID, cfg.WorldID.Action, cfg.WorldID.VerifyURL)

	// Initialize usecases
	onchainUsecase := usecases.NewOnchainUsecase(bundlerClient, chainReader, sbt, collateral, desk, accountParams, cfg.Contracts.LendingDeskID)
	botUsecase := usecases.NewBotUsecase(botClient, userRepo, walletRepo, verificationRepo, loanRepo, onchainUsecase, cfg.Telegram.BotDomain, cfg.Contracts.ERC20Decimals)
	verificationUsecase := usecases.NewVerificationUsecase(worldIDClient, botUsecase, userRepo, walletRepo, verificationRepo, onchainUsecase, cfg.WorldID.AppID, cfg.WorldID.Action)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	telegramBotHandler := handlers.NewTelegramBotHandler(botUsecase)
	worldIDHandler := handlers.NewWorldIDHandler(verificationUsecase)

	initDataAuth := middleware.InitDataAuthMiddleware(cfg.Telegram.BotToken)

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	registerRoutes(r, routeDeps{
		healthHandler:      healthHandler,
		telegramBotHandler: telegramBotHandler,
		worldIDHandler:     worldIDHandler,
		initDataAuth:       initDataAuth,
	})

	// Register the bot webhook so Telegram starts delivering updates
	webhookURL := cfg.Telegram.BotDomain + "/api/telegram-bot/processUpdate"
	if err := setWebhook(context.Background(), botClient, webhookURL); err != nil {
		return fmt.Errorf("failed to set telegram webhook: %w", err)
	}
	logger.Info(context.Background(), "Telegram webhook registered", zap.String("url", webhookURL))

	log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
	return runServer(r, cfg.Server.Port)
}
