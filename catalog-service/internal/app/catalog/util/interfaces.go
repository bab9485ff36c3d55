package util

import (
	"context"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
)

// CategoryCache интерфейс кеша агрегатов по категориям
// Используется для dependency injection и упрощения тестирования
type CategoryCache interface {
	SetCategories(ctx context.Context, categories []entity.CategorySummary, ttl time.Duration) error
	// GetCategories возвращает nil, nil при промахе
	GetCategories(ctx context.Context) ([]entity.CategorySummary, error)
	DeleteCategories(ctx context.Context) error
}

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
