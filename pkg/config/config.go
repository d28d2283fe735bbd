package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	Dynamo     DynamoConfig
	S3         S3Config
	Weather    WeatherConfig
	Engine     EngineConfig
	RateLimit  RateLimitConfig
	Security   SecurityConfig
	Sweeper    SweeperConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
	AckTimeout    time.Duration // ожидание подтверждения для critical alert'ов
	StreamMaxAge  time.Duration
}

type CloudWatchConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	MetricsEnabled           bool
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsMaxSeries         int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32

	LogsEnabled       bool
	LogGroupName      string
	LogStreamName     string
	LogsBatchSize     int
	LogsFlushInterval time.Duration
}

type DynamoConfig struct {
	Enabled         bool
	TableVerdicts   string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
	RecordTTLDays   int
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type WeatherConfig struct {
	Enabled        bool
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	CacheSize      int
	CacheTTL       time.Duration
}

// EngineConfig задает параметры оценки для обоих движков.
type EngineConfig struct {
	ProviderTimeout    time.Duration
	BaselineWindowDays int
	WindowSize         int
	HarborRadiusKm     float64
	EmergencyRadiusKm  float64
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

type SecurityConfig struct {
	AllowedOrigins []string
}

type SweeperConfig struct {
	Enabled       bool
	Port          string
	Interval      time.Duration
	Lookback      time.Duration
	RunTimeout    time.Duration
	MaxSeries     int
	StartupDelay  time.Duration
	SummaryWindow int
	// Retention срок хранения показаний; 0 отключает очистку
	Retention time.Duration
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	redisTTL, err := parseDuration(getEnv("REDIS_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	metricsFlush, err := parseDuration(getEnv("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_FLUSH_INTERVAL: %w", err)
	}

	metricsMaxSeries, err := strconv.Atoi(getEnv("CLOUDWATCH_METRICS_MAX_SERIES", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_MAX_SERIES: %w", err)
	}

	storageResolution, err := strconv.Atoi(getEnv("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_STORAGE_RESOLUTION: %w", err)
	}

	logsFlush, err := parseDuration(getEnv("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_FLUSH_INTERVAL: %w", err)
	}

	logsBatch, err := strconv.Atoi(getEnv("CLOUDWATCH_LOGS_BATCH_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_BATCH_SIZE: %w", err)
	}

	natsAckTimeout, err := parseDuration(getEnv("NATS_ACK_TIMEOUT", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_ACK_TIMEOUT: %w", err)
	}

	natsMaxAge, err := parseDuration(getEnv("NATS_STREAM_MAX_AGE", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_STREAM_MAX_AGE: %w", err)
	}

	recordTTLDays, err := strconv.Atoi(getEnv("DYNAMO_RECORD_TTL_DAYS", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid DYNAMO_RECORD_TTL_DAYS: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	weatherTimeout, err := parseDuration(getEnv("WEATHER_REQUEST_TIMEOUT", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_REQUEST_TIMEOUT: %w", err)
	}

	weatherCacheSize, err := strconv.Atoi(getEnv("WEATHER_CACHE_SIZE", "1024"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_CACHE_SIZE: %w", err)
	}

	weatherCacheTTL, err := parseDuration(getEnv("WEATHER_CACHE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_CACHE_TTL: %w", err)
	}

	providerTimeout, err := parseDuration(getEnv("ENGINE_PROVIDER_TIMEOUT", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_PROVIDER_TIMEOUT: %w", err)
	}

	baselineWindowDays, err := strconv.Atoi(getEnv("ENGINE_BASELINE_WINDOW_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_BASELINE_WINDOW_DAYS: %w", err)
	}

	windowSize, err := strconv.Atoi(getEnv("ENGINE_WINDOW_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_WINDOW_SIZE: %w", err)
	}

	harborRadius, err := strconv.ParseFloat(getEnv("ENGINE_HARBOR_RADIUS_KM", "100"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_HARBOR_RADIUS_KM: %w", err)
	}

	emergencyRadius, err := strconv.ParseFloat(getEnv("ENGINE_EMERGENCY_RADIUS_KM", "200"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_EMERGENCY_RADIUS_KM: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	sweepInterval, err := parseDuration(getEnv("SWEEPER_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEPER_INTERVAL: %w", err)
	}

	sweepLookback, err := parseDuration(getEnv("SWEEPER_LOOKBACK", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEPER_LOOKBACK: %w", err)
	}

	sweepTimeout, err := parseDuration(getEnv("SWEEPER_RUN_TIMEOUT", "45s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEPER_RUN_TIMEOUT: %w", err)
	}

	sweepStartupDelay, err := parseDuration(getEnv("SWEEPER_STARTUP_DELAY", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEPER_STARTUP_DELAY: %w", err)
	}

	sweepMaxSeries, err := strconv.Atoi(getEnv("SWEEPER_MAX_SERIES", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEPER_MAX_SERIES: %w", err)
	}

	sweepSummaryWindow, err := strconv.Atoi(getEnv("SWEEPER_SUMMARY_WINDOW", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEPER_SUMMARY_WINDOW: %w", err)
	}

	sweepRetention, err := parseDuration(getEnv("SWEEPER_RETENTION", "2160h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEPER_RETENTION: %w", err)
	}

	awsRegion := getEnv("AWS_REGION", "eu-west-1")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "vessel_guard"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      redisTTL,
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "vessel"),
			AckTimeout:    natsAckTimeout,
			StreamMaxAge:  natsMaxAge,
		},
		CloudWatch: CloudWatchConfig{
			Region:                   getEnv("CLOUDWATCH_REGION", awsRegion),
			Endpoint:                 getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:              getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:          getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MetricsEnabled:           getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			MetricsNamespace:         getEnv("CLOUDWATCH_METRICS_NAMESPACE", "VesselGuard"),
			MetricsDimensions:        parseDimensions(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "Service=vessel-guard")),
			MetricsMaxSeries:         metricsMaxSeries,
			MetricsFlushInterval:     metricsFlush,
			MetricsStorageResolution: int32(storageResolution),
			LogsEnabled:              getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			LogGroupName:             getEnv("CLOUDWATCH_LOG_GROUP", "/vessel-guard/api"),
			LogStreamName:            getEnv("CLOUDWATCH_LOG_STREAM", hostnameOr("vessel-guard")),
			LogsBatchSize:            logsBatch,
			LogsFlushInterval:        logsFlush,
		},
		Dynamo: DynamoConfig{
			Enabled:         getEnvBool("DYNAMO_ENABLED", false),
			TableVerdicts:   getEnv("DYNAMO_TABLE_VERDICTS", "anomaly_verdicts"),
			Region:          getEnv("DYNAMO_REGION", awsRegion),
			Endpoint:        getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			StrongReads:     getEnvBool("DYNAMO_STRONG_READS", false),
			RecordTTLDays:   recordTTLDays,
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", awsRegion),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", getEnv("AWS_ACCESS_KEY_ID", "")),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", getEnv("AWS_SECRET_ACCESS_KEY", "")),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "emergency-reports"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    presignedTTL,
		},
		Weather: WeatherConfig{
			Enabled:        getEnvBool("WEATHER_ENABLED", true),
			BaseURL:        getEnv("WEATHER_BASE_URL", "http://localhost:8090"),
			APIKey:         getEnv("WEATHER_API_KEY", ""),
			RequestTimeout: weatherTimeout,
			CacheSize:      weatherCacheSize,
			CacheTTL:       weatherCacheTTL,
		},
		Engine: EngineConfig{
			ProviderTimeout:    providerTimeout,
			BaselineWindowDays: baselineWindowDays,
			WindowSize:         windowSize,
			HarborRadiusKm:     harborRadius,
			EmergencyRadiusKm:  emergencyRadius,
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: rps,
			Burst:             burst,
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
		},
		Sweeper: SweeperConfig{
			Enabled:       getEnvBool("SWEEPER_ENABLED", true),
			Port:          getEnv("SWEEPER_PORT", "8081"),
			Interval:      sweepInterval,
			Lookback:      sweepLookback,
			RunTimeout:    sweepTimeout,
			MaxSeries:     sweepMaxSeries,
			StartupDelay:  sweepStartupDelay,
			SummaryWindow: sweepSummaryWindow,
			Retention:     sweepRetention,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	if c.Engine.ProviderTimeout <= 0 {
		return fmt.Errorf("ENGINE_PROVIDER_TIMEOUT must be positive")
	}
	if c.Engine.BaselineWindowDays <= 0 {
		return fmt.Errorf("ENGINE_BASELINE_WINDOW_DAYS must be positive")
	}
	if c.Engine.WindowSize < 1 {
		return fmt.Errorf("ENGINE_WINDOW_SIZE must be at least 1")
	}
	if c.Engine.HarborRadiusKm <= 0 || c.Engine.EmergencyRadiusKm <= 0 {
		return fmt.Errorf("zone search radius must be positive")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("SWEEPER_INTERVAL must be positive")
	}
	if c.Sweeper.Retention < 0 {
		return fmt.Errorf("SWEEPER_RETENTION cannot be negative")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	current := ""

	for _, r := range raw {
		if r == ',' {
			if current != "" {
				items = append(items, current)
				current = ""
			}
			continue
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			current += string(r)
		}
	}

	if current != "" {
		items = append(items, current)
	}

	return items
}

// parseDimensions разбирает строку вида "Key=Value,Key2=Value2".
func parseDimensions(raw string) map[string]string {
	result := make(map[string]string)
	for _, item := range splitCSV(raw) {
		for i := 0; i < len(item); i++ {
			if item[i] == '=' {
				if i > 0 && i < len(item)-1 {
					result[item[:i]] = item[i+1:]
				}
				break
			}
		}
	}
	return result
}

func hostnameOr(fallback string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return fallback
	}
	return host
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
