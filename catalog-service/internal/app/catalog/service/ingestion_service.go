package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/infrastructure"
	feedhttp "productcatalog/catalog-service/internal/app/catalog/infrastructure/http"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Источники запуска загрузки
const (
	TriggerAPI     = "api"
	TriggerCron    = "cron"
	TriggerStartup = "startup"
)

const defaultHistoryLimit = 20

// IngestionResult - итог успешной загрузки фида
type IngestionResult struct {
	RunID         string
	Ingested      int
	Attempts      int
	IndexFailures []int64 // Товары сохранены, но не попали в индекс
}

// IngestionService загружает внешний фид и атомарно сохраняет его в каталог
// Координирует feed client, репозиторий, индекс, Kafka и историю запусков в MongoDB
type IngestionService struct {
	feed      infrastructure.FeedClient         // Клиент внешнего фида
	repo      repository.ProductRepository      // Хранилище товаров
	bridge    *ConsistencyBridge                // Синхронизация поискового индекса
	runs      repository.IngestionRunRepository // История запусков, может быть nil
	publisher util.MessagePublisher             // Kafka producer, может быть nil
	cache     util.CategoryCache                // Кеш категорий, может быть nil
	policy    RetryPolicy
	validate  *validator.Validate
}

// NewIngestionService создает сервис загрузки фида с внедрением зависимостей
func NewIngestionService(
	feed infrastructure.FeedClient,
	repo repository.ProductRepository,
	bridge *ConsistencyBridge,
	runs repository.IngestionRunRepository,
	publisher util.MessagePublisher,
	cache util.CategoryCache,
	policy RetryPolicy,
) *IngestionService {
	return &IngestionService{
		feed:      feed,
		repo:      repo,
		bridge:    bridge,
		runs:      runs,
		publisher: publisher,
		cache:     cache,
		policy:    policy,
		validate:  entity.NewValidator(),
	}
}

// Ingest выполняет один запуск загрузки: fetch с повторами, валидация,
// атомарный upsert пакета, затем индексация каждого товара.
// Ошибка всегда *IngestionError, при ней каталог не изменяется
func (s *IngestionService) Ingest(ctx context.Context, trigger string) (*IngestionResult, error) {
	run := &entity.IngestionRun{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	log := logger.ForRun(ctx, run.RunID, trigger)
	log.Info().Msg("Catalog ingestion started")

	var feed *entity.FeedResponse
	attempts, err := s.policy.Do(ctx, isRetryableFeedError, func(attemptCtx context.Context) error {
		resp, err := s.feed.FetchProducts(attemptCtx)
		if err != nil {
			log.Warn().Err(err).Msg("Feed fetch attempt failed")
			return err
		}
		feed = resp
		return nil
	})
	run.Attempts = attempts

	if err != nil {
		kind := TransportUnavailable
		if errors.Is(err, feedhttp.ErrMalformedPayload) {
			kind = MalformedPayload
		} else {
			// Фид недоступен: каталог остаётся в прежнем состоянии
			log.Warn().Err(err).Int("attempts", attempts).Msg("Feed unavailable after retries, keeping current catalog")
		}
		return nil, s.fail(ctx, run, &IngestionError{Kind: kind, Attempts: attempts, Err: err})
	}

	if err := s.validate.Struct(feed); err != nil {
		return nil, s.fail(ctx, run, &IngestionError{
			Kind:     MalformedPayload,
			Attempts: attempts,
			Err:      fmt.Errorf("%w: %v", feedhttp.ErrMalformedPayload, err),
		})
	}

	products := make([]*entity.Product, 0, len(feed.Products))
	for i := range feed.Products {
		products = append(products, entity.ToProduct(&feed.Products[i]))
	}

	if err := s.repo.UpsertBatch(ctx, products); err != nil {
		kind := IngestionInternal
		if errors.Is(err, repository.ErrConflict) {
			kind = ReconciliationConflict
		}
		return nil, s.fail(ctx, run, &IngestionError{Kind: kind, Attempts: attempts, Err: err})
	}

	// Пакет закоммичен, ошибки индекса не отменяют загрузку
	var indexFailures []int64
	for _, p := range products {
		if err := s.bridge.OnUpdated(ctx, p); err != nil {
			indexFailures = append(indexFailures, p.ID)
			log.Warn().Err(err).Int64("product_id", p.ID).Msg("Product saved but not indexed")
		}
	}
	if len(indexFailures) > 0 {
		metrics.RecordIndexInconsistency("ingestion", len(indexFailures))
	}

	invalidateCategories(ctx, s.cache)

	event := entity.ProductEvent{
		EventType: entity.EventCatalogIngested,
		Count:     len(products),
		Timestamp: time.Now(),
	}
	if err := publishEvent(ctx, s.publisher, event); err != nil {
		log.Error().Err(err).Msg("Failed to publish catalog ingested event")
	}

	run.Status = entity.IngestionStatusSuccess
	run.Ingested = len(products)
	run.IndexFailures = indexFailures
	s.finish(ctx, run)

	log.Info().
		Int("ingested", run.Ingested).
		Int("attempts", attempts).
		Int("index_failures", len(indexFailures)).
		Msg("Catalog ingestion finished")

	return &IngestionResult{
		RunID:         run.RunID,
		Ingested:      run.Ingested,
		Attempts:      attempts,
		IndexFailures: indexFailures,
	}, nil
}

// History возвращает последние запуски загрузки, новые первыми
func (s *IngestionService) History(ctx context.Context, limit int) ([]entity.IngestionRun, error) {
	if s.runs == nil {
		return []entity.IngestionRun{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	return runs, nil
}

// Reindex перестраивает поисковый индекс по текущему содержимому каталога
func (s *IngestionService) Reindex(ctx context.Context) (int, error) {
	return s.bridge.ReindexAll(ctx)
}

func (s *IngestionService) fail(ctx context.Context, run *entity.IngestionRun, ingErr *IngestionError) error {
	ingErr.RunID = run.RunID
	run.Status = entity.IngestionStatusFailed
	run.ErrorKind = string(ingErr.Kind)
	run.Error = ingErr.Err.Error()
	s.finish(ctx, run)

	log := logger.ForRun(ctx, run.RunID, run.Trigger)
	log.Error().
		Err(ingErr.Err).
		Str("error_kind", run.ErrorKind).
		Int("attempts", ingErr.Attempts).
		Msg("Catalog ingestion failed")

	return ingErr
}

// finish сохраняет запись о запуске даже если контекст запроса уже отменён
func (s *IngestionService) finish(ctx context.Context, run *entity.IngestionRun) {
	run.FinishedAt = time.Now().UTC()
	metrics.RecordIngestionRun(run.Status, run.Attempts, run.Ingested)

	if s.runs == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.runs.Save(saveCtx, run); err != nil {
		log := logger.ForRun(ctx, run.RunID, run.Trigger)
		log.Warn().Err(err).Msg("Failed to save ingestion run")
	}
}

// isRetryableFeedError - повторяем всё, кроме заведомо некорректного ответа
func isRetryableFeedError(err error) bool {
	return !errors.Is(err, feedhttp.ErrMalformedPayload)
}
