package repository

import (
	"context"
	"sort"
	"sync"

	"productcatalog/catalog-service/internal/app/catalog/entity"
)

// memoryProductRepository - эталонная реализация в памяти.
// Пакет сначала полностью проверяется, потом применяется под одной блокировкой,
// поэтому читатели не видят частично записанный пакет
type memoryProductRepository struct {
	mu           sync.RWMutex
	products     map[int64]*entity.Product
	skus         map[string]int64
	nextReviewID int64
}

// NewMemoryProductRepository создает хранилище товаров в памяти
func NewMemoryProductRepository() ProductRepository {
	return &memoryProductRepository{
		products: make(map[int64]*entity.Product),
		skus:     make(map[string]int64),
	}
}

func (r *memoryProductRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p.Clone(), nil
}

func (r *memoryProductRepository) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.skus[sku]
	if !ok {
		return nil, ErrProductNotFound
	}
	return r.products[id].Clone(), nil
}

func (r *memoryProductRepository) List(ctx context.Context) ([]entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]entity.Product, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, *p.Clone())
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (r *memoryProductRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.products[id]
	return ok, nil
}

func (r *memoryProductRepository) Create(ctx context.Context, product *entity.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; ok {
		return ErrProductExists
	}
	if err := r.checkOwners([]*entity.Product{product}); err != nil {
		return err
	}
	r.put(product)
	return nil
}

func (r *memoryProductRepository) Upsert(ctx context.Context, product *entity.Product) error {
	return r.UpsertBatch(ctx, []*entity.Product{product})
}

func (r *memoryProductRepository) UpsertBatch(ctx context.Context, products []*entity.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkBatch(products); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkOwners(products); err != nil {
		return err
	}
	for _, p := range products {
		r.put(p)
	}
	return nil
}

func (r *memoryProductRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return false, nil
	}
	delete(r.skus, p.SKU)
	delete(r.products, id)
	return true, nil
}

// checkOwners вызывается под блокировкой записи
func (r *memoryProductRepository) checkOwners(products []*entity.Product) error {
	owners := make([]skuOwner, 0, len(products))
	for _, p := range products {
		if id, ok := r.skus[p.SKU]; ok {
			owners = append(owners, skuOwner{ID: id, SKU: p.SKU})
		}
	}
	return checkOwners(products, owners)
}

// put сохраняет копию товара и выдаёт идентификаторы новым отзывам.
// Вызывается под блокировкой записи после всех проверок, вызывающий получает
// идентификаторы только вместе с уже сохранённой записью
func (r *memoryProductRepository) put(product *entity.Product) {
	if prev, ok := r.products[product.ID]; ok && prev.SKU != product.SKU {
		delete(r.skus, prev.SKU)
	}

	stored := product.Clone()
	for i := range stored.Reviews {
		r.nextReviewID++
		stored.Reviews[i].ID = r.nextReviewID
		stored.Reviews[i].ProductID = stored.ID
	}

	r.products[stored.ID] = stored
	r.skus[stored.SKU] = stored.ID
	product.Reviews = stored.Clone().Reviews
}

// listCategoryRepository считает категории по списку товаров,
// используется вместе с хранилищем в памяти
type listCategoryRepository struct {
	products ProductRepository
}

// NewListCategoryRepository строит агрегаты категорий поверх любого ProductRepository
func NewListCategoryRepository(products ProductRepository) CategoryRepository {
	return &listCategoryRepository{products: products}
}

func (r *listCategoryRepository) ListCategories(ctx context.Context) ([]entity.CategorySummary, error) {
	products, err := r.products.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, p := range products {
		counts[p.Category]++
	}

	categories := make([]entity.CategorySummary, 0, len(counts))
	for name, n := range counts {
		categories = append(categories, entity.CategorySummary{Name: name, Products: n})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}
