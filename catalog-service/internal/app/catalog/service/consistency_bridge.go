package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/search"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"
)

// ConsistencyBridge связывает записи в репозиторий с поисковым индексом.
// Все пути записи вызывают On* сразу после коммита в репозиторий.
// Индекс может временно отставать от репозитория, поэтому Search перепроверяет
// каждый найденный ID, а ReindexAll восстанавливает индекс целиком
type ConsistencyBridge struct {
	repo  repository.ProductRepository
	index search.Index

	reindexMu sync.Mutex // Одновременно выполняется не больше одной переиндексации
}

// NewConsistencyBridge создает мост между репозиторием и индексом
func NewConsistencyBridge(repo repository.ProductRepository, index search.Index) *ConsistencyBridge {
	return &ConsistencyBridge{repo: repo, index: index}
}

// OnCreated индексирует только что созданный товар
func (b *ConsistencyBridge) OnCreated(ctx context.Context, product *entity.Product) error {
	return b.indexProduct(ctx, product)
}

// OnUpdated заменяет запись индекса для товара
func (b *ConsistencyBridge) OnUpdated(ctx context.Context, product *entity.Product) error {
	return b.indexProduct(ctx, product)
}

// OnDeleted удаляет товар из индекса, отсутствие записи не ошибка
func (b *ConsistencyBridge) OnDeleted(ctx context.Context, id int64) error {
	if err := b.index.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to deindex product %d: %w", id, err)
	}
	return nil
}

// Search ищет по индексу и отбрасывает ID, которых уже нет в репозитории.
// Порядок результатов индекса сохраняется
func (b *ConsistencyBridge) Search(ctx context.Context, keyword string) ([]int64, error) {
	ids, err := b.index.Match(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to query search index: %w", err)
	}

	result := make([]int64, 0, len(ids))
	var dangling []int64
	for _, id := range ids {
		exists, err := b.repo.ExistsByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to validate search hit %d: %w", id, err)
		}
		if !exists {
			dangling = append(dangling, id)
			continue
		}
		result = append(result, id)
	}

	if len(dangling) > 0 {
		metrics.RecordIndexInconsistency("search", len(dangling))
		logger.Warn().
			Str("keyword", keyword).
			Interface("dangling_ids", dangling).
			Msg("Search index returned products missing from repository, filtered out")
	}

	return result, nil
}

// ReindexAll очищает индекс и заново индексирует все товары репозитория.
// Безопасна при параллельных записях: перед записью в индекс перечитывает
// актуальную версию товара, после записи убеждается, что товар не удалён.
// Возвращает число проиндексированных товаров
func (b *ConsistencyBridge) ReindexAll(ctx context.Context) (int, error) {
	b.reindexMu.Lock()
	defer b.reindexMu.Unlock()

	timer := metrics.NewTimer()
	defer func() { metrics.SearchReindexDuration.Observe(timer.Seconds()) }()

	// Clear строго до List: всё, что закоммичено раньше, попадёт в List,
	// всё, что позже, проиндексируют сами пути записи
	if err := b.index.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear search index: %w", err)
	}

	products, err := b.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list products for reindex: %w", err)
	}

	indexed := 0
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		ok, err := b.reindexOne(ctx, p.ID)
		if err != nil {
			return indexed, err
		}
		if ok {
			indexed++
		}
	}

	logger.Info().
		Int("indexed", indexed).
		Int("listed", len(products)).
		Dur("duration", timer.Duration()).
		Msg("Search index rebuilt")

	return indexed, nil
}

// reindexOne индексирует актуальную версию товара, если он ещё существует
func (b *ConsistencyBridge) reindexOne(ctx context.Context, id int64) (bool, error) {
	current, err := b.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reload product %d: %w", id, err)
	}

	if err := b.indexProduct(ctx, current); err != nil {
		return false, err
	}

	exists, err := b.repo.ExistsByID(ctx, id)
	if err != nil {
		// Запись остаётся в индексе, Search всё равно перепроверит ID
		logger.Warn().Err(err).Int64("product_id", id).Msg("Failed to recheck product after reindex")
		return true, nil
	}
	if exists {
		return true, nil
	}

	// Товар удалён между чтением и записью в индекс
	if err := b.index.Remove(ctx, id); err != nil {
		return false, fmt.Errorf("failed to drop deleted product %d: %w", id, err)
	}
	metrics.RecordIndexInconsistency("reindex", 1)

	// ID мог быть создан заново и проиндексирован, пока выполнялось удаление
	if again, err := b.repo.GetByID(ctx, id); err == nil {
		if err := b.indexProduct(ctx, again); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (b *ConsistencyBridge) indexProduct(ctx context.Context, product *entity.Product) error {
	doc := search.Document{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
	}
	if err := b.index.Index(ctx, doc); err != nil {
		return fmt.Errorf("failed to index product %d: %w", product.ID, err)
	}
	return nil
}
