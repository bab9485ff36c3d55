package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/pkg/logger"
)

const defaultCategoriesTTL = time.Hour

// CatalogService обрабатывает бизнес-логику каталога товаров
// Координирует репозитории, поисковый индекс, Redis кеш и Kafka producer
type CatalogService struct {
	productRepo  repository.ProductRepository  // Хранилище товаров (PostgreSQL или память)
	categoryRepo repository.CategoryRepository // Агрегаты по категориям
	bridge       *ConsistencyBridge            // Синхронизация поискового индекса
	cache        util.CategoryCache            // Кеш категорий, может быть nil
	publisher    util.MessagePublisher         // Producer событий о товарах, может быть nil
	cacheTTL     time.Duration
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	bridge *ConsistencyBridge,
	cache util.CategoryCache,
	publisher util.MessagePublisher,
	cacheTTL time.Duration,
) *CatalogService {
	if cacheTTL <= 0 {
		cacheTTL = defaultCategoriesTTL
	}
	return &CatalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		bridge:       bridge,
		cache:        cache,
		publisher:    publisher,
		cacheTTL:     cacheTTL,
	}
}

// === PRODUCTS ===

// CreateProduct создает товар с ID из запроса и индексирует его
func (s *CatalogService) CreateProduct(ctx context.Context, req *entity.ProductRequest) (*entity.Product, error) {
	product := entity.ToProduct(req)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, translateRepoError(err, "failed to create product")
	}

	s.afterWrite(ctx, entity.EventProductCreated, product)
	return product, nil
}

// GetAllProducts возвращает все товары по возрастанию ID
func (s *CatalogService) GetAllProducts(ctx context.Context) ([]entity.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// GetProduct получает товар по ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "failed to get product")
	}
	return product, nil
}

// UpdateProduct полностью заменяет товар. ID в теле должен совпадать с ID в пути
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *entity.ProductRequest) (*entity.Product, error) {
	if req.ID != id {
		return nil, ErrIDMismatch
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "failed to get product")
	}

	entity.ApplyProductRequest(product, req)
	return s.save(ctx, product)
}

// PatchProduct обновляет только переданные поля товара
func (s *CatalogService) PatchProduct(ctx context.Context, id int64, req *entity.ProductPatchRequest) (*entity.Product, error) {
	if req.ID != nil && *req.ID != id {
		return nil, ErrIDMismatch
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "failed to get product")
	}

	entity.ApplyProductPatch(product, req)
	return s.save(ctx, product)
}

// DeleteProduct удаляет товар и убирает его из индекса
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	deleted, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !deleted {
		return ErrProductNotFound
	}

	if err := s.bridge.OnDeleted(ctx, id); err != nil {
		// Товар уже удалён, висячий ID отфильтрует Search
		logger.Warn().Err(err).Int64("product_id", id).Msg("Product deleted but not removed from search index")
	}
	invalidateCategories(ctx, s.cache)
	publishProductEvent(ctx, s.publisher, entity.EventProductDeleted, &entity.Product{ID: id})
	return nil
}

// SearchProducts ищет товары по ключевому слову в названии и описании.
// Порядок соответствует релевантности, удалённые товары не возвращаются
func (s *CatalogService) SearchProducts(ctx context.Context, keyword string) ([]entity.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []entity.Product{}, nil
	}

	ids, err := s.bridge.Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	products := make([]entity.Product, 0, len(ids))
	for _, id := range ids {
		product, err := s.productRepo.GetByID(ctx, id)
		if errors.Is(err, repository.ErrProductNotFound) {
			// Удалён после проверки в Search
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load search hit %d: %w", id, err)
		}
		products = append(products, *product)
	}
	return products, nil
}

// FindByIDOrSKU ищет товар по ID, если он передан, иначе по SKU
func (s *CatalogService) FindByIDOrSKU(ctx context.Context, id *int64, sku string) (*entity.Product, error) {
	var (
		product *entity.Product
		err     error
	)
	switch {
	case id != nil:
		product, err = s.productRepo.GetByID(ctx, *id)
	case strings.TrimSpace(sku) != "":
		product, err = s.productRepo.GetBySKU(ctx, strings.TrimSpace(sku))
	default:
		return nil, ErrMissingLookupKey
	}
	if err != nil {
		return nil, translateRepoError(err, "failed to find product")
	}
	return product, nil
}

// === CATEGORIES ===

// GetCategories возвращает категории с числом товаров, с кешированием в Redis
func (s *CatalogService) GetCategories(ctx context.Context) ([]entity.CategorySummary, error) {
	if s.cache != nil {
		categories, err := s.cache.GetCategories(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to read categories cache")
		} else if categories != nil {
			return categories, nil
		}
	}

	categories, err := s.categoryRepo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetCategories(ctx, categories, s.cacheTTL); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache categories")
		}
	}
	return categories, nil
}

// save записывает изменённый товар и синхронизирует индекс
func (s *CatalogService) save(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	if err := s.productRepo.Upsert(ctx, product); err != nil {
		return nil, translateRepoError(err, "failed to update product")
	}

	s.afterWrite(ctx, entity.EventProductUpdated, product)
	return product, nil
}

// afterWrite - побочные эффекты успешной записи, их ошибки не откатывают запись
func (s *CatalogService) afterWrite(ctx context.Context, eventType string, product *entity.Product) {
	var err error
	if eventType == entity.EventProductCreated {
		err = s.bridge.OnCreated(ctx, product)
	} else {
		err = s.bridge.OnUpdated(ctx, product)
	}
	if err != nil {
		logger.Warn().Err(err).Int64("product_id", product.ID).Msg("Product saved but not indexed")
	}

	invalidateCategories(ctx, s.cache)
	publishProductEvent(ctx, s.publisher, eventType, product)
}

func translateRepoError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return ErrProductNotFound
	case errors.Is(err, repository.ErrProductExists):
		return ErrProductExists
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
