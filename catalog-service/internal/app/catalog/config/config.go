package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Поддерживаемые реализации хранилища товаров
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Поддерживаемые реализации поискового индекса
const (
	SearchMemory        = "memory"
	SearchRedis         = "redis"
	SearchElasticsearch = "elasticsearch"
)

// Config содержит все настройки приложения Catalog Service
// Включает конфигурацию для HTTP сервера, хранилища, поискового индекса,
// внешнего фида, Kafka, MongoDB, планировщика и JWT
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Search   SearchConfig
	Feed     FeedConfig
	Kafka    KafkaConfig
	Mongo    MongoConfig
	Cron     CronConfig
	JWT      JWTConfig
	Log      LogConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host string // Адрес хоста (по умолчанию 0.0.0.0)
	Port string // Порт сервера (по умолчанию 8081)
}

// StorageConfig - выбор реализации репозитория товаров
type StorageConfig struct {
	Backend string // postgres | memory
}

// DatabaseConfig - настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string // disable/require/verify-full
}

// RedisConfig - настройки подключения к Redis (поисковый индекс и кеш категорий)
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int // Номер БД Redis (0-15)
	CacheEnabled bool
	CacheTTL     time.Duration // Время жизни кеша категорий
}

// SearchConfig - настройки полнотекстового индекса
type SearchConfig struct {
	Backend          string   // memory | redis | elasticsearch
	ElasticAddresses []string // Адреса узлов Elasticsearch
	ElasticIndex     string   // Имя индекса товаров
}

// FeedConfig - внешний источник товаров и политика повторов
type FeedConfig struct {
	URL            string
	Timeout        time.Duration // Ограничение на одну попытку
	MaxAttempts    int           // Обязательный верхний предел числа попыток
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64 // 1 - фиксированная задержка, >1 - экспоненциальная
}

// KafkaConfig - настройки Kafka для отправки событий каталога
type KafkaConfig struct {
	Enabled bool
	Brokers []string // Формат: host:port
	Topic   string   // PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DELETED, CATALOG_INGESTED
}

// MongoConfig - хранилище истории запусков ingestion
type MongoConfig struct {
	Enabled    bool
	URI        string
	Database   string
	Collection string
}

// CronConfig - расписания фоновых задач (пустая строка отключает задачу)
type CronConfig struct {
	FeedRefreshSchedule string
	ReindexSchedule     string
	LoadOnStart         bool
}

// JWTConfig - настройки для проверки JWT токенов
type JWTConfig struct {
	Secret string // Должен совпадать с сервисом, выпускающим токены
}

// LogConfig - уровень логирования и опциональный Logstash
type LogConfig struct {
	Level        string
	LogstashAddr string
}

// Load загружает конфигурацию из переменных окружения
// Возвращает ошибку, если не удалось распарсить значения или они противоречивы
func Load() (*Config, error) {
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cacheEnabled, err := getEnvBool("REDIS_CACHE_ENABLED", true)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("REDIS_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	feedTimeout, err := getEnvDuration("FEED_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := getEnvInt("FEED_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	initialBackoff, err := getEnvDuration("FEED_INITIAL_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	maxBackoff, err := getEnvDuration("FEED_MAX_BACKOFF", 5*time.Second)
	if err != nil {
		return nil, err
	}
	multiplier, err := getEnvFloat("FEED_BACKOFF_MULTIPLIER", 2)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := getEnvBool("KAFKA_ENABLED", true)
	if err != nil {
		return nil, err
	}
	mongoEnabled, err := getEnvBool("MONGO_ENABLED", false)
	if err != nil {
		return nil, err
	}
	loadOnStart, err := getEnvBool("CRON_LOAD_ON_START", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8081"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", StoragePostgres)),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "catalog_service"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			CacheEnabled: cacheEnabled,
			CacheTTL:     cacheTTL,
		},
		Search: SearchConfig{
			Backend:          strings.ToLower(getEnv("SEARCH_BACKEND", SearchMemory)),
			ElasticAddresses: splitList(getEnv("ELASTICSEARCH_ADDRESSES", "http://localhost:9200")),
			ElasticIndex:     getEnv("ELASTICSEARCH_INDEX", "products"),
		},
		Feed: FeedConfig{
			URL:            getEnv("FEED_URL", "https://dummyjson.com/products"),
			Timeout:        feedTimeout,
			MaxAttempts:    maxAttempts,
			InitialBackoff: initialBackoff,
			MaxBackoff:     maxBackoff,
			Multiplier:     multiplier,
		},
		Kafka: KafkaConfig{
			Enabled: kafkaEnabled,
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "product_events"),
		},
		Mongo: MongoConfig{
			Enabled:    mongoEnabled,
			URI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getEnv("MONGO_DATABASE", "catalog_service"),
			Collection: getEnv("MONGO_COLLECTION", "ingestion_runs"),
		},
		Cron: CronConfig{
			FeedRefreshSchedule: getEnv("CRON_FEED_REFRESH", ""),
			ReindexSchedule:     getEnv("CRON_REINDEX", "@every 1h"),
			LoadOnStart:         loadOnStart,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: getEnv("LOGSTASH_ADDR", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case StoragePostgres, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	switch c.Search.Backend {
	case SearchMemory, SearchRedis:
	case SearchElasticsearch:
		if len(c.Search.ElasticAddresses) == 0 {
			errs = append(errs, errors.New("ELASTICSEARCH_ADDRESSES is required for elasticsearch backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SEARCH_BACKEND %q", c.Search.Backend))
	}

	if c.Feed.URL == "" {
		errs = append(errs, errors.New("FEED_URL must not be empty"))
	}
	if c.Feed.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("FEED_MAX_ATTEMPTS must be >= 1, got %d", c.Feed.MaxAttempts))
	}
	if c.Feed.Timeout <= 0 {
		errs = append(errs, errors.New("FEED_TIMEOUT must be positive"))
	}
	if c.Feed.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("FEED_BACKOFF_MULTIPLIER must be >= 1, got %v", c.Feed.Multiplier))
	}
	if c.Feed.MaxBackoff < c.Feed.InitialBackoff {
		errs = append(errs, errors.New("FEED_MAX_BACKOFF must not be less than FEED_INITIAL_BACKOFF"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when Kafka is enabled"))
	}

	return errors.Join(errs...)
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address возвращает адрес сервера в формате host:port для HTTP сервера
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес Redis в формате host:port для подключения
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return b, nil
}

// getEnvDuration принимает формат time.ParseDuration (500ms, 10s, 1m)
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}

// splitList разбирает список через запятую, отбрасывая пустые элементы
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
