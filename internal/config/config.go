package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Blockchain BlockchainConfig
	Contracts  ContractsConfig
	Telegram   TelegramConfig
	WorldID    WorldIDConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// BlockchainConfig holds chain and bundler endpoint configuration.
// The bundler (and its paymaster) is co-located with the chain RPC endpoint.
type BlockchainConfig struct {
	RPCURL              string
	TestNetworkID       string
	EntryPointAddress   string
	AccountFactory      string
	AccountInitCodeHash string
	ReceiptPollInterval time.Duration
}

// IsTestNetwork reports whether the configured RPC URL points at the
// designated test network.
func (c BlockchainConfig) IsTestNetwork() bool {
	return strings.Contains(c.RPCURL, c.TestNetworkID)
}

// ContractsConfig holds deployed contract addresses and lending desk parameters
type ContractsConfig struct {
	SBTAddress           string
	CollateralNFTAddress string
	LendingDeskAddress   string
	ERC20Address         string
	ERC20Decimals        int
	LendingDeskID        uint64
}

// TelegramConfig holds bot API configuration
type TelegramConfig struct {
	BotToken  string
	BotDomain string
	APIURL    string
}

// WorldIDConfig holds identity verification configuration
type WorldIDConfig struct {
	AppID     string
	Action    string
	VerifyURL string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "magnifylend"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		Blockchain: BlockchainConfig{
			RPCURL:              getEnv("CHAIN_RPC_URL", "https://sepolia.base.org"),
			TestNetworkID:       getEnv("TEST_NETWORK_ID", "sepolia"),
			EntryPointAddress:   getEnv("ENTRY_POINT_ADDRESS", "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
			AccountFactory:      getEnv("ACCOUNT_FACTORY_ADDRESS", "0x0BA5ED0c6AA8c49038F819E587E2633c4A9F428a"),
			AccountInitCodeHash: getEnv("ACCOUNT_INIT_CODE_HASH", ""),
			ReceiptPollInterval: getEnvAsDuration("RECEIPT_POLL_INTERVAL", 2*time.Second),
		},
		Contracts: ContractsConfig{
			SBTAddress:           getEnv("SBT_CONTRACT_ADDRESS", ""),
			CollateralNFTAddress: getEnv("COLLATERAL_NFT_CONTRACT_ADDRESS", ""),
			LendingDeskAddress:   getEnv("LENDING_DESK_CONTRACT_ADDRESS", ""),
			ERC20Address:         getEnv("LENDING_DESK_ERC20_CONTRACT_ADDRESS", ""),
			ERC20Decimals:        getEnvAsInt("LENDING_DESK_ERC20_CONTRACT_DECIMALS", 6),
			LendingDeskID:        uint64(getEnvAsInt("LENDING_DESK_ID", 1)),
		},
		Telegram: TelegramConfig{
			BotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
			BotDomain: getEnv("TELEGRAM_BOT_DOMAIN", ""),
			APIURL:    getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		},
		WorldID: WorldIDConfig{
			AppID:     getEnv("WORLD_COIN_APP_ID", ""),
			Action:    getEnv("WORLD_COIN_ACTION_IDENTIFIER", ""),
			VerifyURL: getEnv("WORLD_COIN_VERIFY_URL", "https://developer.worldcoin.org/api/v2/verify"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
