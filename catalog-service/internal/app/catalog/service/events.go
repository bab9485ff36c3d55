package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/pkg/logger"
)

// publishEvent отправляет событие каталога в Kafka.
// Key - ProductID для партиционирования, для событий без товара - тип события
func publishEvent(ctx context.Context, publisher util.MessagePublisher, event entity.ProductEvent) error {
	if publisher == nil {
		return nil
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal product event: %w", err)
	}

	key := event.EventType
	if event.ProductID != 0 {
		key = strconv.FormatInt(event.ProductID, 10)
	}

	if err := publisher.PublishMessage(ctx, key, eventData); err != nil {
		return fmt.Errorf("failed to publish to kafka: %w", err)
	}
	return nil
}

// publishProductEvent отправляет событие о товаре, ошибка только логируется
func publishProductEvent(ctx context.Context, publisher util.MessagePublisher, eventType string, product *entity.Product) {
	event := entity.ProductEvent{
		EventType: eventType,
		ProductID: product.ID,
		SKU:       product.SKU,
		Title:     product.Title,
		Price:     product.Price,
		Timestamp: time.Now(),
	}
	if err := publishEvent(ctx, publisher, event); err != nil {
		// Товар уже сохранён, проблемы с Kafka не критичны
		logger.Error().Err(err).
			Str("event_type", eventType).
			Int64("product_id", product.ID).
			Msg("Failed to publish product event")
	}
}

// invalidateCategories сбрасывает кеш категорий после изменения каталога
func invalidateCategories(ctx context.Context, cache util.CategoryCache) {
	if cache == nil {
		return
	}
	if err := cache.DeleteCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate categories cache")
	}
}
