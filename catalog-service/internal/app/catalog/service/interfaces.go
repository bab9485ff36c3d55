package service

import (
	"context"

	"productcatalog/catalog-service/internal/app/catalog/entity"
)

type CatalogServiceInterface interface {
	CreateProduct(ctx context.Context, req *entity.ProductRequest) (*entity.Product, error)
	GetAllProducts(ctx context.Context) ([]entity.Product, error)
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
	UpdateProduct(ctx context.Context, id int64, req *entity.ProductRequest) (*entity.Product, error)
	PatchProduct(ctx context.Context, id int64, req *entity.ProductPatchRequest) (*entity.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	SearchProducts(ctx context.Context, keyword string) ([]entity.Product, error)
	FindByIDOrSKU(ctx context.Context, id *int64, sku string) (*entity.Product, error)

	GetCategories(ctx context.Context) ([]entity.CategorySummary, error)
}

type IngestionServiceInterface interface {
	Ingest(ctx context.Context, trigger string) (*IngestionResult, error)
	History(ctx context.Context, limit int) ([]entity.IngestionRun, error)
	Reindex(ctx context.Context) (int, error)
}
