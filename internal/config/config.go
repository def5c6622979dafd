package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Service   ServiceConfig
	Server    ServerConfig
	Inventory InventoryConfig
	Cart      CartConfig
	Checkout  CheckoutConfig
	Redis     RedisConfig
	Gateways  GatewayConfig
}

type ServiceConfig struct {
	Name string
	Env  string
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type InventoryConfig struct {
	DefaultWarehouse  string
	LowStockThreshold int
}

type CartConfig struct {
	GuestTTL      time.Duration
	SweepInterval time.Duration
}

type CheckoutConfig struct {
	Currency    string
	ShippingFee decimal.Decimal
}

type RedisConfig struct {
	Addr string
}

type GatewayConfig struct {
	MoMoSecret   string
	VNPaySecret  string
	StripeSecret string
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "commerce-core"),
			Env:  getEnv("ENV", "dev"),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Inventory: InventoryConfig{
			DefaultWarehouse:  getEnv("INVENTORY_DEFAULT_WAREHOUSE", "HCM-01"),
			LowStockThreshold: getEnvInt("INVENTORY_LOW_STOCK_THRESHOLD", 10),
		},
		Cart: CartConfig{
			GuestTTL:      getEnvDuration("CART_GUEST_TTL", 7*24*time.Hour),
			SweepInterval: getEnvDuration("CART_SWEEP_INTERVAL", time.Hour),
		},
		Checkout: CheckoutConfig{
			Currency:    getEnv("CHECKOUT_CURRENCY", "VND"),
			ShippingFee: getEnvDecimal("CHECKOUT_SHIPPING_FEE", decimal.NewFromInt(30000)),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Gateways: GatewayConfig{
			MoMoSecret:   getEnv("MOMO_SECRET_KEY", "momo-dev-secret"),
			VNPaySecret:  getEnv("VNPAY_HASH_SECRET", "vnpay-dev-secret"),
			StripeSecret: getEnv("STRIPE_WEBHOOK_SECRET", "whsec-dev"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
