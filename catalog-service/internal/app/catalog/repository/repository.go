package repository

import (
	"context"
	"errors"
	"fmt"

	"productcatalog/catalog-service/internal/app/catalog/entity"
)

var (
	ErrProductNotFound = errors.New("product not found")
	// ErrProductExists - товар с таким ID уже существует (create)
	ErrProductExists = errors.New("product already exists")
	// ErrConflict - нарушение уникальности ID или SKU, запись не выполнена
	ErrConflict = errors.New("uniqueness conflict")
)

// ProductRepository - долговременное хранилище товаров
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// List возвращает все товары, порядок стабилен в пределах вызова (по ID)
	List(ctx context.Context) ([]entity.Product, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, product *entity.Product) error
	Upsert(ctx context.Context, product *entity.Product) error
	// UpsertBatch атомарен: при любом конфликте не записывается ни один товар
	UpsertBatch(ctx context.Context, products []*entity.Product) error
	// Delete возвращает true, если товар существовал и был удалён вместе с отзывами
	Delete(ctx context.Context, id int64) (bool, error)
}

// CategoryRepository - агрегаты по категориям товаров
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]entity.CategorySummary, error)
}

// IngestionRunRepository - история запусков загрузки фида
type IngestionRunRepository interface {
	Save(ctx context.Context, run *entity.IngestionRun) error
	ListRecent(ctx context.Context, limit int) ([]entity.IngestionRun, error)
}

// checkBatch проверяет уникальность ID и SKU внутри одного пакета
func checkBatch(products []*entity.Product) error {
	ids := make(map[int64]struct{}, len(products))
	skus := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, ok := ids[p.ID]; ok {
			return fmt.Errorf("%w: duplicate id %d in batch", ErrConflict, p.ID)
		}
		if _, ok := skus[p.SKU]; ok {
			return fmt.Errorf("%w: duplicate sku %q in batch", ErrConflict, p.SKU)
		}
		ids[p.ID] = struct{}{}
		skus[p.SKU] = struct{}{}
	}
	return nil
}
