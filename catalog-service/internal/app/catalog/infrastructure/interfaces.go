package infrastructure

import (
	"context"

	"productcatalog/catalog-service/internal/app/catalog/entity"
)

// FeedClient выполняет одно обращение к внешнему источнику товаров
type FeedClient interface {
	FetchProducts(ctx context.Context) (*entity.FeedResponse, error)
}
