// Package config loads storefront backend configuration from config.toml, .env and SF_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Mongo       MongoConfig
	Storage     StorageConfig
	Marketplace MarketplaceConfig
	Import      ImportConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Telemetry   TelemetryConfig
	Profiler    ProfilerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
	ConnMaxIdleTime int // minutes
	LogLevel        string
}

// RedisConfig holds Redis settings for the pricing config cache
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// MongoConfig holds the content store connection
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// StorageConfig selects and configures the asset store
type StorageConfig struct {
	Driver        string // s3, drive, local
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
	DriveFolderID string
	DriveCredFile string
	LocalDir      string
	PublicBaseURL string
}

// MarketplaceConfig configures the listing fetcher
type MarketplaceConfig struct {
	Source     string // api, html
	BaseURL    string
	APIKey     string
	RateLimit  float64 // requests per second
	Burst      int
	Timeout    time.Duration
	MaxBytes   int64
	RenderMode string // http, chrome
	UserAgent  string
}

// ImportConfig configures the import pipeline
type ImportConfig struct {
	ImageConcurrency  int
	MaxImages         int
	MaxImageDimension int
	MinImageDimension int
	ImageQuality      int
	MaxImageBytes     int64
	ImageTimeout      time.Duration
	ImageBatchTimeout time.Duration
	FetchTimeout      time.Duration
	StoreTimeout      time.Duration
	SKUPrefix         string
	BrandName         string
	Compensation      string // delete, orphan
	BulkParallelism   int
	MaxBulkRows       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	RateLimit        float64 // requests per second per client, 0 disables
	RateBurst        int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
}

// ProfilerConfig holds Pyroscope configuration
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	SpanProfiles      bool
}

// Load reads .env from the working directory, then config.toml and SF_ environment variables.
// Priority (highest first): environment, .env, config.toml, built-in defaults.
func Load() (*Config, error) {
	return LoadWithEnvFile(".env")
}

// LoadWithEnvFile is Load with an explicit .env path. A missing file is ignored.
func LoadWithEnvFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Mongo: MongoConfig{
			URI:        v.GetString("mongo.uri"),
			Database:   v.GetString("mongo.database"),
			Collection: v.GetString("mongo.collection"),
			Timeout:    v.GetDuration("mongo.timeout"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storage.driver"),
			Bucket:        v.GetString("storage.bucket"),
			Region:        v.GetString("storage.region"),
			Endpoint:      v.GetString("storage.endpoint"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
			DriveFolderID: v.GetString("storage.drive_folder_id"),
			DriveCredFile: v.GetString("storage.drive_credentials_file"),
			LocalDir:      v.GetString("storage.local_dir"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
		},
		Marketplace: MarketplaceConfig{
			Source:     v.GetString("marketplace.source"),
			BaseURL:    v.GetString("marketplace.base_url"),
			APIKey:     v.GetString("marketplace.api_key"),
			RateLimit:  v.GetFloat64("marketplace.rate_limit"),
			Burst:      v.GetInt("marketplace.burst"),
			Timeout:    v.GetDuration("marketplace.timeout"),
			MaxBytes:   v.GetInt64("marketplace.max_bytes"),
			RenderMode: v.GetString("marketplace.render_mode"),
			UserAgent:  v.GetString("marketplace.user_agent"),
		},
		Import: ImportConfig{
			ImageConcurrency:  v.GetInt("import.image_concurrency"),
			MaxImages:         v.GetInt("import.max_images"),
			MaxImageDimension: v.GetInt("import.max_image_dimension"),
			MinImageDimension: v.GetInt("import.min_image_dimension"),
			ImageQuality:      v.GetInt("import.image_quality"),
			MaxImageBytes:     v.GetInt64("import.max_image_bytes"),
			ImageTimeout:      v.GetDuration("import.image_timeout"),
			ImageBatchTimeout: v.GetDuration("import.image_batch_timeout"),
			FetchTimeout:      v.GetDuration("import.fetch_timeout"),
			StoreTimeout:      v.GetDuration("import.store_timeout"),
			SKUPrefix:         v.GetString("import.sku_prefix"),
			BrandName:         v.GetString("import.brand_name"),
			Compensation:      v.GetString("import.compensation"),
			BulkParallelism:   v.GetInt("import.bulk_parallelism"),
			MaxBulkRows:       v.GetInt("import.max_bulk_rows"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			RateLimit:        v.GetFloat64("http.rate_limit"),
			RateBurst:        v.GetInt("http.rate_burst"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiler: ProfilerConfig{
			Enabled:           v.GetBool("profiler.enabled"),
			ServerAddress:     v.GetString("profiler.server_address"),
			ApplicationName:   v.GetString("profiler.application_name"),
			BasicAuthUser:     v.GetString("profiler.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiler.basic_auth_password"),
			SpanProfiles:      v.GetBool("profiler.span_profiles"),
		},
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	setString(&cfg.App.Name, "storefront-backend")
	setString(&cfg.App.Env, "development")
	setString(&cfg.App.Port, "8080")

	setString(&cfg.Database.Host, "localhost")
	setInt(&cfg.Database.Port, 5432)
	setString(&cfg.Database.User, "postgres")
	setString(&cfg.Database.DBName, "storefront")
	setString(&cfg.Database.SSLMode, "disable")
	setInt(&cfg.Database.MaxOpenConns, 25)
	setInt(&cfg.Database.MaxIdleConns, 5)
	setInt(&cfg.Database.ConnMaxLifetime, 60)
	setInt(&cfg.Database.ConnMaxIdleTime, 30)
	setString(&cfg.Database.LogLevel, "warn")

	setString(&cfg.Redis.Host, "localhost")
	setInt(&cfg.Redis.Port, 6379)
	setDuration(&cfg.Redis.TTL, 10*time.Minute)

	setString(&cfg.Mongo.URI, "mongodb://localhost:27017")
	setString(&cfg.Mongo.Database, "storefront")
	setString(&cfg.Mongo.Collection, "products")
	setDuration(&cfg.Mongo.Timeout, 10*time.Second)

	setString(&cfg.Storage.Driver, "local")
	setString(&cfg.Storage.Region, "us-east-1")
	setString(&cfg.Storage.LocalDir, "./data/assets")

	setString(&cfg.Marketplace.Source, "api")
	if cfg.Marketplace.RateLimit == 0 {
		cfg.Marketplace.RateLimit = 5
	}
	setInt(&cfg.Marketplace.Burst, 5)
	setDuration(&cfg.Marketplace.Timeout, 20*time.Second)
	if cfg.Marketplace.MaxBytes == 0 {
		cfg.Marketplace.MaxBytes = 5 << 20
	}
	setString(&cfg.Marketplace.RenderMode, "http")
	setString(&cfg.Marketplace.UserAgent, "storefront-importer/1.0")

	setInt(&cfg.Import.ImageConcurrency, 3)
	setInt(&cfg.Import.MaxImages, 8)
	setInt(&cfg.Import.MaxImageDimension, 1200)
	setInt(&cfg.Import.ImageQuality, 85)
	if cfg.Import.MaxImageBytes == 0 {
		cfg.Import.MaxImageBytes = 10 << 20
	}
	setDuration(&cfg.Import.ImageTimeout, 15*time.Second)
	setDuration(&cfg.Import.ImageBatchTimeout, 60*time.Second)
	setDuration(&cfg.Import.FetchTimeout, 30*time.Second)
	setDuration(&cfg.Import.StoreTimeout, 10*time.Second)
	setString(&cfg.Import.SKUPrefix, "SF")
	setString(&cfg.Import.BrandName, "Storefront")
	setString(&cfg.Import.Compensation, "delete")
	setInt(&cfg.Import.BulkParallelism, 4)
	setInt(&cfg.Import.MaxBulkRows, 500)

	setString(&cfg.Log.Level, "info")
	setString(&cfg.Log.Format, "console")
	setString(&cfg.Log.Output, "stdout")

	setDuration(&cfg.HTTP.ReadTimeout, 15*time.Second)
	// imports can take up to fetch + image batch + store timeouts
	setDuration(&cfg.HTTP.WriteTimeout, 2*time.Minute)
	setDuration(&cfg.HTTP.IdleTimeout, 60*time.Second)
	setInt(&cfg.HTTP.MaxHeaderBytes, 1<<20)
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	setInt(&cfg.HTTP.RateBurst, 20)

	setString(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	setString(&cfg.Telemetry.ServiceName, "storefront-backend")
	setDuration(&cfg.Telemetry.MetricsInterval, 60*time.Second)
	setDuration(&cfg.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)

	setString(&cfg.Profiler.ApplicationName, "storefront-backend")
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

func setDuration(field *time.Duration, def time.Duration) {
	if *field == 0 {
		*field = def
	}
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return errors.New("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 driver")
		}
	case "drive":
		if c.Storage.DriveFolderID == "" {
			return errors.New("storage.drive_folder_id is required for the drive driver")
		}
	case "local":
	default:
		return fmt.Errorf("storage.driver must be one of s3, drive, local, got %q", c.Storage.Driver)
	}

	switch c.Marketplace.Source {
	case "api":
		if c.Marketplace.BaseURL != "" {
			if _, err := url.ParseRequestURI(c.Marketplace.BaseURL); err != nil {
				return fmt.Errorf("marketplace.base_url is invalid: %w", err)
			}
		}
	case "html":
	default:
		return fmt.Errorf("marketplace.source must be api or html, got %q", c.Marketplace.Source)
	}
	if c.Marketplace.RenderMode != "http" && c.Marketplace.RenderMode != "chrome" {
		return fmt.Errorf("marketplace.render_mode must be http or chrome, got %q", c.Marketplace.RenderMode)
	}
	if c.Marketplace.RateLimit < 0 {
		return errors.New("marketplace.rate_limit cannot be negative")
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("http.rate_limit cannot be negative")
	}

	if c.Import.ImageConcurrency < 1 {
		return errors.New("import.image_concurrency must be at least 1")
	}
	if c.Import.ImageQuality < 1 || c.Import.ImageQuality > 100 {
		return fmt.Errorf("import.image_quality must be between 1 and 100, got %d", c.Import.ImageQuality)
	}
	if c.Import.Compensation != "delete" && c.Import.Compensation != "orphan" {
		return fmt.Errorf("import.compensation must be delete or orphan, got %q", c.Import.Compensation)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return errors.New("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return errors.New("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return errors.New("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// DSN returns the PostgreSQL connection URL with escaped credentials
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
