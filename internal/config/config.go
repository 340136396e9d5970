// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Cache     CacheConfig
	Analytics AnalyticsConfig
	Ingest    IngestConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type AppConfig struct {
	UploadDir  string
	DataDir    string
	PolicyFile string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
	SummaryTTLSeconds  int
}

type AnalyticsConfig struct {
	LeadTimeDays        int
	SafetyStockPercent  float64
	ServiceLevel        float64
	SimulationDays      int
	ForecastHorizonDays int
	Workers             int
}

type IngestConfig struct {
	DriveFolderID       string
	CredentialsJSON     string
	PollIntervalSeconds int
	DownloadDir         string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "novamart")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
		viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
		viper.SetDefault("APP_DATA_DIR", "./data/output")
		viper.SetDefault("APP_POLICY_FILE", "")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_FORECAST_TTL_SECONDS", 900)
		viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 60)
		viper.SetDefault("ANALYTICS_LEAD_TIME_DAYS", 7)
		viper.SetDefault("ANALYTICS_SAFETY_STOCK_PERCENT", 20.0)
		viper.SetDefault("ANALYTICS_SERVICE_LEVEL", 0.95)
		viper.SetDefault("ANALYTICS_SIMULATION_DAYS", 30)
		viper.SetDefault("ANALYTICS_FORECAST_HORIZON_DAYS", 30)
		viper.SetDefault("ANALYTICS_WORKERS", 4)
		viper.SetDefault("INGEST_DRIVE_FOLDER_ID", "")
		viper.SetDefault("INGEST_POLL_INTERVAL_SECONDS", 300)
		viper.SetDefault("INGEST_DOWNLOAD_DIR", "./data/uploads/sales/raw")
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "novamart-exports")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure upload and data directories exist
		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:         viper.GetString("DB_HOST"),
				Port:         viper.GetString("DB_PORT"),
				User:         viper.GetString("DB_USER"),
				Password:     viper.GetString("DB_PASSWORD"),
				DBName:       viper.GetString("DB_NAME"),
				SSLMode:      viper.GetString("DB_SSLMODE"),
				MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
				MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
			},
			App: AppConfig{
				UploadDir:  viper.GetString("APP_UPLOAD_DIR"),
				DataDir:    viper.GetString("APP_DATA_DIR"),
				PolicyFile: viper.GetString("APP_POLICY_FILE"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				ForecastTTLSeconds: viper.GetInt("CACHE_FORECAST_TTL_SECONDS"),
				SummaryTTLSeconds:  viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
			},
			Analytics: AnalyticsConfig{
				LeadTimeDays:        viper.GetInt("ANALYTICS_LEAD_TIME_DAYS"),
				SafetyStockPercent:  viper.GetFloat64("ANALYTICS_SAFETY_STOCK_PERCENT"),
				ServiceLevel:        viper.GetFloat64("ANALYTICS_SERVICE_LEVEL"),
				SimulationDays:      viper.GetInt("ANALYTICS_SIMULATION_DAYS"),
				ForecastHorizonDays: viper.GetInt("ANALYTICS_FORECAST_HORIZON_DAYS"),
				Workers:             viper.GetInt("ANALYTICS_WORKERS"),
			},
			Ingest: IngestConfig{
				DriveFolderID:       viper.GetString("INGEST_DRIVE_FOLDER_ID"),
				CredentialsJSON:     viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
				PollIntervalSeconds: viper.GetInt("INGEST_POLL_INTERVAL_SECONDS"),
				DownloadDir:         viper.GetString("INGEST_DOWNLOAD_DIR"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
		}
	})

	return instance
}

// DefaultPolicy exposes the env-level replenishment parameters as the policy
// handlers fall back to when a request carries no overrides.
func (a AnalyticsConfig) DefaultPolicy() domain.PolicyParams {
	return domain.PolicyParams{
		LeadTimeDays:       a.LeadTimeDays,
		SafetyStockPercent: a.SafetyStockPercent,
		ServiceLevel:       a.ServiceLevel,
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
