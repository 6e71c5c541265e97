package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	RpcURL         string
	DbURL          string
	KafkaBroker    string
	KafkaTopic     string
	ChainID        int64
	RouterAddress  string
	FactoryAddress string
	WethAddress    string
	APIPort        int

	ApprovalInterval  time.Duration
	CriteriaInterval  time.Duration
	ExecutionInterval time.Duration
	TrackerInterval   time.Duration
	ExpiryInterval    time.Duration
	CallTimeout       time.Duration

	ReceiptMaxPolls     int
	ExpireUndatedOrders bool
}

// NewConfig loads configuration from environment variables
func NewConfig() *Config {
	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	return &Config{
		RpcURL:         getEnvOrFatal("RPC_URL"),
		DbURL:          getEnvOrFatal("DB_URL"),
		KafkaBroker:    getEnvOrFatal("KAFKA_BROKER"),
		KafkaTopic:     getEnvOrFatal("KAFKA_TOPIC"),
		ChainID:        int64(getEnvInt("CHAIN_ID", 1)),
		RouterAddress:  getEnvOrFatal("ROUTER_ADDRESS"),
		FactoryAddress: getEnvOrFatal("FACTORY_ADDRESS"),
		WethAddress:    getEnvOrFatal("WETH_ADDRESS"),
		APIPort:        getEnvInt("API_PORT", 8080),

		ApprovalInterval:  getEnvDuration("APPROVAL_INTERVAL", 30*time.Second),
		CriteriaInterval:  getEnvDuration("CRITERIA_INTERVAL", 60*time.Second),
		ExecutionInterval: getEnvDuration("EXECUTION_INTERVAL", 30*time.Second),
		TrackerInterval:   getEnvDuration("TRACKER_INTERVAL", 15*time.Second),
		ExpiryInterval:    getEnvDuration("EXPIRY_INTERVAL", 60*time.Second),
		CallTimeout:       getEnvDuration("CALL_TIMEOUT", 20*time.Second),

		ReceiptMaxPolls:     getEnvInt("RECEIPT_MAX_POLLS", 40),
		ExpireUndatedOrders: getEnvBool("EXPIRE_UNDATED_ORDERS", false),
	}
}

func getEnvOrFatal(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	log.Fatalf("Warning: environment variable %s not set", key)

	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
