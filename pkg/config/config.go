package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Endpoint адрес нижестоящего сервиса
type Endpoint struct {
	Host string
	Port int
}

// Config содержит все настройки сервисов платформы.
// Каждый сервис использует только нужные ему секции.
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		RequestTimeout  time.Duration
	}

	Postgres struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int // размер пула соединений
	}

	Redis struct {
		Host              string
		Port              int
		Password          string
		DB                int
		PoolSize          int           // размер пула соединений
		MinIdleConns      int           // минимальное количество неактивных соединений
		ConnectTimeout    time.Duration // таймаут соединения
		ReadTimeout       time.Duration // таймаут чтения
		WriteTimeout      time.Duration // таймаут записи
		MaxRetries        int           // максимальное количество повторных попыток
		DefaultExpiration time.Duration // срок действия кэша по умолчанию
	}

	SQLite struct {
		Path         string
		MaxOpenConns int
	}

	Kafka struct {
		Brokers           []string      `mapstructure:"brokers"`
		GroupID           string        `mapstructure:"groupID"`
		DeadLetterSuffix  string        `mapstructure:"deadLetterSuffix"`
		AutoOffsetReset   string        `mapstructure:"autoOffsetReset"`
		SessionTimeout    time.Duration `mapstructure:"sessionTimeout"`
		PollTimeout       time.Duration `mapstructure:"pollTimeout"`
		DeliveryTimeout   time.Duration `mapstructure:"deliveryTimeout"`
		MaxRetries        int           `mapstructure:"maxRetries"`
		RetryBackoff      time.Duration `mapstructure:"retryBackoff"`
		MaxRetryBackoff   time.Duration `mapstructure:"maxRetryBackoff"`
		Partitions        int           `mapstructure:"partitions"`
		ReplicationFactor int           `mapstructure:"replicationFactor"`
		EnableIdempotence bool          `mapstructure:"enableIdempotence"`
		CompressionType   string        `mapstructure:"compressionType"`
		LingerMs          int           `mapstructure:"lingerMs"`
	}

	Publisher struct {
		PoolSize  int // число воркеров публикации
		QueueSize int // глубина очереди задач
	}

	Downstream struct {
		Timeout          time.Duration
		ResolveAddresses bool          // резолвить имена хостов через кэш
		ResolverCacheTTL time.Duration // время жизни записи кэша резолвера
		Product          Endpoint
		Recommendation   Endpoint
		Review           Endpoint
	}

	Tracing struct {
		Enabled     bool
		ServiceName string
		Endpoint    string
		Probability float64 // вероятность сэмплирования трассировки
	}

	Metrics struct {
		Enabled bool
		Path    string
		Port    int
	}

	Security struct {
		AuthEnabled      bool
		JWTSecret        string
		JWTIssuer        string
		JWTExpirationMin time.Duration
		CORSAllowOrigins []string
	}
}

// Load загружает конфигурацию сервиса appName из файла и переменных окружения.
// Если configName пуст, ищется файл с именем сервиса.
func Load(appName, configName string) (*Config, error) {
	if configName == "" {
		configName = appName
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("../../config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v, appName)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// без файла работаем на значениях по умолчанию и переменных окружения
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ENV == "" {
		cfg.ENV = "development"
		if envVar := os.Getenv("APP_ENV"); envVar != "" {
			cfg.ENV = envVar
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет значения, без которых сервис не может работать
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Publisher.PoolSize <= 0 {
		return fmt.Errorf("invalid publisher pool size: %d", c.Publisher.PoolSize)
	}
	if c.Publisher.QueueSize < 0 {
		return fmt.Errorf("invalid publisher queue size: %d", c.Publisher.QueueSize)
	}
	if c.Kafka.MaxRetries < 1 {
		return fmt.Errorf("invalid kafka max retries: %d", c.Kafka.MaxRetries)
	}
	if c.Downstream.Timeout <= 0 {
		return fmt.Errorf("invalid downstream timeout: %s", c.Downstream.Timeout)
	}
	if c.Security.AuthEnabled && c.Security.JWTSecret == "" {
		return errors.New("jwt secret is required when auth is enabled")
	}
	return nil
}

// Address адрес HTTP сервера
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper, appName string) {
	// Основные настройки
	v.SetDefault("appName", appName)
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "")

	// Настройки сервера
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "10s")
	v.SetDefault("server.shutdownTimeout", "5s")
	v.SetDefault("server.requestTimeout", "30s")

	// Настройки Postgres
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "product-db")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timeout", "5s")
	v.SetDefault("postgres.poolSize", 10)

	// Настройки Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.connectTimeout", "3s")
	v.SetDefault("redis.readTimeout", "2s")
	v.SetDefault("redis.writeTimeout", "2s")
	v.SetDefault("redis.maxRetries", 3)
	v.SetDefault("redis.defaultExpiration", "10m")

	// Настройки SQLite
	v.SetDefault("sqlite.path", "review.db")
	v.SetDefault("sqlite.maxOpenConns", 1)

	// Настройки Kafka
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.groupID", appName)
	v.SetDefault("kafka.deadLetterSuffix", ".dlq")
	v.SetDefault("kafka.autoOffsetReset", "earliest")
	v.SetDefault("kafka.sessionTimeout", "30s")
	v.SetDefault("kafka.pollTimeout", "100ms")
	v.SetDefault("kafka.deliveryTimeout", "30s")
	v.SetDefault("kafka.maxRetries", 3)
	v.SetDefault("kafka.retryBackoff", "500ms")
	v.SetDefault("kafka.maxRetryBackoff", "10s")
	v.SetDefault("kafka.partitions", 2)
	v.SetDefault("kafka.replicationFactor", 1)
	v.SetDefault("kafka.enableIdempotence", true)
	v.SetDefault("kafka.compressionType", "snappy")
	v.SetDefault("kafka.lingerMs", 5)

	// Настройки публикации событий
	v.SetDefault("publisher.poolSize", 10)
	v.SetDefault("publisher.queueSize", 100)

	// Нижестоящие сервисы
	v.SetDefault("downstream.timeout", "5s")
	v.SetDefault("downstream.resolveAddresses", false)
	v.SetDefault("downstream.resolverCacheTTL", "10s")
	v.SetDefault("downstream.product.host", "product")
	v.SetDefault("downstream.product.port", 8080)
	v.SetDefault("downstream.recommendation.host", "recommendation")
	v.SetDefault("downstream.recommendation.port", 8080)
	v.SetDefault("downstream.review.host", "review")
	v.SetDefault("downstream.review.port", 8080)

	// Настройки трассировки
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", appName)
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.probability", 0.1)

	// Настройки метрик
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)

	// Настройки безопасности
	v.SetDefault("security.authEnabled", false)
	v.SetDefault("security.jwtSecret", "")
	v.SetDefault("security.jwtIssuer", "product-composite-platform")
	v.SetDefault("security.jwtExpirationMin", "60m")
	v.SetDefault("security.corsAllowOrigins", []string{"*"})
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables(v *viper.Viper) {
	bindings := map[string]string{
		"appName":  "APP_NAME",
		"version":  "APP_VERSION",
		"logLevel": "LOG_LEVEL",
		"env":      "APP_ENV",

		"server.host":            "SERVER_HOST",
		"server.port":            "SERVER_PORT",
		"server.readTimeout":     "SERVER_READ_TIMEOUT",
		"server.writeTimeout":    "SERVER_WRITE_TIMEOUT",
		"server.shutdownTimeout": "SERVER_SHUTDOWN_TIMEOUT",
		"server.requestTimeout":  "SERVER_REQUEST_TIMEOUT",

		"postgres.host":     "POSTGRES_HOST",
		"postgres.port":     "POSTGRES_PORT",
		"postgres.user":     "POSTGRES_USER",
		"postgres.password": "POSTGRES_PASSWORD",
		"postgres.dbname":   "POSTGRES_DBNAME",
		"postgres.sslmode":  "POSTGRES_SSLMODE",
		"postgres.timeout":  "POSTGRES_TIMEOUT",
		"postgres.poolSize": "POSTGRES_POOL_SIZE",

		"redis.host":              "REDIS_HOST",
		"redis.port":              "REDIS_PORT",
		"redis.password":          "REDIS_PASSWORD",
		"redis.db":                "REDIS_DB",
		"redis.poolSize":          "REDIS_POOL_SIZE",
		"redis.defaultExpiration": "REDIS_DEFAULT_EXPIRATION",

		"sqlite.path": "SQLITE_PATH",

		"kafka.brokers":         "KAFKA_BROKERS",
		"kafka.groupID":         "KAFKA_GROUP_ID",
		"kafka.autoOffsetReset": "KAFKA_AUTO_OFFSET_RESET",
		"kafka.maxRetries":      "KAFKA_MAX_RETRIES",
		"kafka.retryBackoff":    "KAFKA_RETRY_BACKOFF",
		"kafka.partitions":      "KAFKA_PARTITIONS",

		"publisher.poolSize":  "PUBLISHER_POOL_SIZE",
		"publisher.queueSize": "PUBLISHER_QUEUE_SIZE",

		"downstream.timeout":             "DOWNSTREAM_TIMEOUT",
		"downstream.resolveAddresses":    "DOWNSTREAM_RESOLVE_ADDRESSES",
		"downstream.resolverCacheTTL":    "DOWNSTREAM_RESOLVER_CACHE_TTL",
		"downstream.product.host":        "PRODUCT_SERVICE_HOST",
		"downstream.product.port":        "PRODUCT_SERVICE_PORT",
		"downstream.recommendation.host": "RECOMMENDATION_SERVICE_HOST",
		"downstream.recommendation.port": "RECOMMENDATION_SERVICE_PORT",
		"downstream.review.host":         "REVIEW_SERVICE_HOST",
		"downstream.review.port":         "REVIEW_SERVICE_PORT",

		"tracing.enabled":     "TRACING_ENABLED",
		"tracing.serviceName": "TRACING_SERVICE_NAME",
		"tracing.endpoint":    "TRACING_ENDPOINT",
		"tracing.probability": "TRACING_PROBABILITY",

		"metrics.enabled": "METRICS_ENABLED",
		"metrics.port":    "METRICS_PORT",

		"security.authEnabled":      "AUTH_ENABLED",
		"security.jwtSecret":        "JWT_SECRET",
		"security.corsAllowOrigins": "CORS_ALLOW_ORIGINS",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}
