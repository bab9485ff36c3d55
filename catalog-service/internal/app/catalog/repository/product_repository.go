package repository

import (
	"context"
	"errors"
	"fmt"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const serviceName = "catalog"

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает репозиторий товаров поверх PostgreSQL (gorm)
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Migrate создаёт таблицы products и reviews
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Product{}, &entity.Review{})
}

// GetByID получает товар по ID вместе с отзывами
func (r *productRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	var product entity.Product
	err := r.withReviews(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &product, nil
}

// GetBySKU получает товар по SKU
func (r *productRepository) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	var product entity.Product
	err := r.withReviews(ctx).First(&product, "sku = ?", sku).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get product by sku: %w", err)
	}
	return &product, nil
}

// List получает все товары, упорядоченные по ID
func (r *productRepository) List(ctx context.Context) ([]entity.Product, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	var products []entity.Product
	if err := r.withReviews(ctx).Order("id ASC").Find(&products).Error; err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ExistsByID проверяет наличие товара без загрузки записи
func (r *productRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return false, fmt.Errorf("failed to check product %d: %w", id, err)
	}
	return count > 0, nil
}

// Create вставляет новый товар. Занятый ID - ErrProductExists, занятый SKU - ErrConflict
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "products")
	defer timer.ObserveDuration()

	row := product.Clone()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Product{}).Where("id = ?", product.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrProductExists
		}
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return err
		}
		return insertReviews(tx, row)
	})
	if err != nil {
		return r.translate(err, metrics.DbOpInsert)
	}
	product.Reviews = row.Reviews
	return nil
}

// Upsert вставляет или заменяет один товар
func (r *productRepository) Upsert(ctx context.Context, product *entity.Product) error {
	return r.UpsertBatch(ctx, []*entity.Product{product})
}

// UpsertBatch записывает пакет в одной транзакции.
// SKU, принадлежащий другому существующему ID, откатывает весь пакет
func (r *productRepository) UpsertBatch(ctx context.Context, products []*entity.Product) error {
	if len(products) == 0 {
		return nil
	}
	if err := checkBatch(products); err != nil {
		return err
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpsert, "products")
	defer timer.ObserveDuration()

	// Транзакция пишет копии, идентификаторы отзывов попадают к вызывающему только после коммита
	skus := make([]string, 0, len(products))
	rows := make([]*entity.Product, 0, len(products))
	for _, p := range products {
		skus = append(skus, p.SKU)
		rows = append(rows, p.Clone())
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners []skuOwner
		if err := tx.Model(&entity.Product{}).Select("id", "sku").Where("sku IN ?", skus).Find(&owners).Error; err != nil {
			return err
		}
		if err := checkOwners(products, owners); err != nil {
			return err
		}

		for _, p := range rows {
			err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
				Create(p).Error
			if err != nil {
				return err
			}
			// Отзывы заменяются целиком: старые удаляются, новые вставляются
			if err := tx.Where("product_id = ?", p.ID).Delete(&entity.Review{}).Error; err != nil {
				return err
			}
			if err := insertReviews(tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.translate(err, metrics.DbOpUpsert)
	}
	for i, p := range products {
		p.Reviews = rows[i].Reviews
	}
	return nil
}

// Delete удаляет товар и его отзывы
func (r *productRepository) Delete(ctx context.Context, id int64) (bool, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "products")
	defer timer.ObserveDuration()

	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&entity.Review{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entity.Product{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpDelete)
		return false, fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return deleted, nil
}

func (r *productRepository) withReviews(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Reviews", func(db *gorm.DB) *gorm.DB {
		return db.Order("reviews.id ASC")
	})
}

// translate приводит ошибки транзакции к ошибкам репозитория
func (r *productRepository) translate(err error, op metrics.DbOperation) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProductExists) || errors.Is(err, ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	metrics.RecordDbError(serviceName, op)
	return fmt.Errorf("failed to write products: %w", err)
}

type skuOwner struct {
	ID  int64
	SKU string
}

// checkOwners отклоняет пакет, если SKU уже принадлежит товару с другим ID
func checkOwners(products []*entity.Product, owners []skuOwner) error {
	bySKU := make(map[string]int64, len(owners))
	for _, o := range owners {
		bySKU[o.SKU] = o.ID
	}
	for _, p := range products {
		if ownerID, ok := bySKU[p.SKU]; ok && ownerID != p.ID {
			return fmt.Errorf("%w: sku %q of product %d is owned by product %d", ErrConflict, p.SKU, p.ID, ownerID)
		}
	}
	return nil
}

func insertReviews(tx *gorm.DB, p *entity.Product) error {
	if len(p.Reviews) == 0 {
		return nil
	}
	for i := range p.Reviews {
		p.Reviews[i].ID = 0
		p.Reviews[i].ProductID = p.ID
	}
	return tx.Create(&p.Reviews).Error
}
