package repository

import (
	"context"
	"fmt"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/metrics"

	"github.com/jackc/pgx/v5"
)

// Querier - часть pgxpool.Pool, нужная репозиторию категорий
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type categoryRepository struct {
	db Querier // Пул соединений с PostgreSQL
}

// NewCategoryRepository создает репозиторий агрегатов по категориям
func NewCategoryRepository(db Querier) CategoryRepository {
	return &categoryRepository{db: db}
}

// ListCategories возвращает категории с количеством товаров, по алфавиту
func (r *categoryRepository) ListCategories(ctx context.Context) ([]entity.CategorySummary, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	query := `
		SELECT category, COUNT(*)
		FROM products
		GROUP BY category
		ORDER BY category ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]entity.CategorySummary, 0)
	for rows.Next() {
		var c entity.CategorySummary
		if err := rows.Scan(&c.Name, &c.Products); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}
