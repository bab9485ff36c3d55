package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"productcatalog/catalog-service/internal/app/catalog/config"
	"productcatalog/catalog-service/internal/app/catalog/handler"
	feedhttp "productcatalog/catalog-service/internal/app/catalog/infrastructure/http"
	"productcatalog/catalog-service/internal/app/catalog/processor"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/search"
	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/pkg/logger"
)

func main() {
	// === ИНИЦИАЛИЗАЦИЯ КОНФИГУРАЦИИ ===
	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		logger.Init("catalog-service", "info")
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	// === ЛОГИРОВАНИЕ ===
	logger.Init("catalog-service", cfg.Log.Level)
	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, "catalog-service", cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", cfg.Log.LogstashAddr).Msg("Connected to Logstash")
		}
	}

	ctx := context.Background()

	// === ХРАНИЛИЩЕ ТОВАРОВ ===
	var (
		productRepo  repository.ProductRepository
		categoryRepo repository.CategoryRepository
		gormDB       *gorm.DB
	)
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		// Один pgx pool обслуживает и gorm, и агрегирующие запросы категорий
		pool, err := connectDB(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()

		gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize gorm")
		}
		if err := repository.Migrate(gormDB); err != nil {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}

		productRepo = repository.NewProductRepository(gormDB)
		categoryRepo = repository.NewCategoryRepository(pool)
		logger.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.DBName).Msg("Connected to PostgreSQL")
	default:
		productRepo = repository.NewMemoryProductRepository()
		categoryRepo = repository.NewListCategoryRepository(productRepo)
		logger.Warn().Msg("Using in-memory product storage, data is lost on restart")
	}

	// === REDIS ===
	// Redis нужен для поискового индекса (SEARCH_BACKEND=redis) и кеша категорий
	var redisClient *redis.Client
	if cfg.Search.Backend == config.SearchRedis || cfg.Redis.CacheEnabled {
		redisClient, err = util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
		switch {
		case err == nil:
			defer redisClient.Close()
			logger.Info().Str("addr", cfg.Redis.Address()).Msg("Connected to Redis")
		case cfg.Search.Backend == config.SearchRedis:
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		default:
			logger.Warn().Err(err).Msg("Redis unavailable, categories cache disabled")
			redisClient = nil
		}
	}

	var categoryCache util.CategoryCache
	if cfg.Redis.CacheEnabled && redisClient != nil {
		categoryCache = util.NewRedisCategoryCache(redisClient)
	}

	// === ПОИСКОВЫЙ ИНДЕКС ===
	var (
		index       search.Index
		indexPinger handler.Pinger
	)
	switch cfg.Search.Backend {
	case config.SearchRedis:
		redisIndex := search.NewRedisIndex(redisClient, "")
		index, indexPinger = redisIndex, redisIndex
	case config.SearchElasticsearch:
		esClient, err := search.NewElasticClient(cfg.Search.ElasticAddresses)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Elasticsearch client")
		}
		elasticIndex := search.NewElasticIndex(esClient, cfg.Search.ElasticIndex)
		if err := elasticIndex.EnsureIndex(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to prepare Elasticsearch index")
		}
		index, indexPinger = elasticIndex, elasticIndex
		logger.Info().Strs("addresses", cfg.Search.ElasticAddresses).Str("index", cfg.Search.ElasticIndex).Msg("Connected to Elasticsearch")
	default:
		index = search.NewMemoryIndex()
	}

	// === KAFKA PRODUCER ===
	// События PRODUCT_* и CATALOG_INGESTED уходят в топик product_events
	var publisher util.MessagePublisher
	if cfg.Kafka.Enabled {
		kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaProducer.Close()
		publisher = kafkaProducer
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka producer initialized")
	}

	// === MONGODB (история загрузок) ===
	var runRepo repository.IngestionRunRepository
	if cfg.Mongo.Enabled {
		mongoClient, err := connectMongoDB(cfg.Mongo)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
			}
		}()
		runRepo = repository.NewIngestionRunRepository(mongoClient.Database(cfg.Mongo.Database), cfg.Mongo.Collection)
		logger.Info().Str("database", cfg.Mongo.Database).Msg("Connected to MongoDB")
	}

	// === БИЗНЕС-ЛОГИКА ===
	bridge := service.NewConsistencyBridge(productRepo, index)
	feedClient := feedhttp.NewFeedClient(cfg.Feed.URL, cfg.Feed.Timeout)
	retryPolicy := service.RetryPolicy{
		MaxAttempts:    cfg.Feed.MaxAttempts,
		InitialBackoff: cfg.Feed.InitialBackoff,
		MaxBackoff:     cfg.Feed.MaxBackoff,
		Multiplier:     cfg.Feed.Multiplier,
		AttemptTimeout: cfg.Feed.Timeout,
	}

	catalogService := service.NewCatalogService(productRepo, categoryRepo, bridge, categoryCache, publisher, cfg.Redis.CacheTTL)
	ingestionService := service.NewIngestionService(feedClient, productRepo, bridge, runRepo, publisher, categoryCache, retryPolicy)

	// Индекс в памяти пуст после рестарта, заполняем его из хранилища
	if cfg.Search.Backend == config.SearchMemory {
		if n, err := bridge.ReindexAll(ctx); err != nil {
			logger.Error().Err(err).Msg("Initial reindex failed")
		} else {
			logger.Info().Int("indexed", n).Msg("Search index warmed up")
		}
	}

	// === ПЛАНИРОВЩИК ===
	appCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()

	scheduler := processor.NewCronScheduler(ingestionService)
	if err := scheduler.Start(appCtx, processor.Schedules{
		FeedRefresh: cfg.Cron.FeedRefreshSchedule,
		Reindex:     cfg.Cron.ReindexSchedule,
		LoadOnStart: cfg.Cron.LoadOnStart,
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start cron scheduler")
	}

	// === HTTP ===
	catalogHandler := handler.NewCatalogHandler(catalogService, ingestionService)
	healthHandler := handler.NewHealthHandler(gormDB, redisClient, indexPinger)
	authMiddleware := handler.NewAuthMiddleware(cfg.JWT.Secret)
	router := handler.SetupRoutes(catalogHandler, healthHandler, authMiddleware)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // POST /load включает повторы обращения к фиду
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Msg("Starting Catalog Service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Catalog Service...")

	stopJobs()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Catalog Service stopped gracefully")
}

// connectDB устанавливает соединение с PostgreSQL используя pgx connection pool
// Использует retry logic с 10 попытками для устойчивости при запуске в Docker
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	var pool *pgxpool.Pool
	for i := 0; i < 10; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn().Int("attempt", i+1).Err(err).Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}

func connectMongoDB(cfg config.MongoConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	var lastErr error
	for i := 0; i < 10; i++ {
		client, err := pingMongo(clientOptions)
		if err == nil {
			return client, nil
		}
		lastErr = err

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to MongoDB, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, lastErr
}

func pingMongo(clientOptions *options.ClientOptions) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
