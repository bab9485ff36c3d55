package handler

import (
	"errors"
	"net/http"
	"strconv"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const maxHistoryLimit = 100

// CatalogHandler обрабатывает HTTP запросы для каталога
type CatalogHandler struct {
	catalogService   service.CatalogServiceInterface
	ingestionService service.IngestionServiceInterface
	validator        *validator.Validate
}

// NewCatalogHandler создает новый обработчик каталога
func NewCatalogHandler(catalogService service.CatalogServiceInterface, ingestionService service.IngestionServiceInterface) *CatalogHandler {
	return &CatalogHandler{
		catalogService:   catalogService,
		ingestionService: ingestionService,
		validator:        entity.NewValidator(),
	}
}

// === PRODUCTS HANDLERS ===

// CreateProduct обрабатывает POST /api/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req entity.ProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.respondServiceError(c, err, "Failed to create product")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetAllProducts обрабатывает GET /api/products
func (h *CatalogHandler) GetAllProducts(c *gin.Context) {
	products, err := h.catalogService.GetAllProducts(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "Failed to get products")
		return
	}

	c.JSON(http.StatusOK, entity.ProductListResponse{Products: products, Total: len(products)})
}

// GetProduct обрабатывает GET /api/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err, "Failed to get product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct обрабатывает PUT /api/products/:id (полная замена)
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req entity.ProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		h.respondServiceError(c, err, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// PatchProduct обрабатывает PATCH /api/products/:id (частичное обновление)
func (h *CatalogHandler) PatchProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req entity.ProductPatchRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.PatchProduct(c.Request.Context(), id, &req)
	if err != nil {
		h.respondServiceError(c, err, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct обрабатывает DELETE /api/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondServiceError(c, err, "Failed to delete product")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Product deleted"})
}

// SearchProducts обрабатывает GET /api/products/search?keyword=
// Пустой результат - 404 с пустым списком
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	var query entity.SearchQuery
	if !h.bindQuery(c, &query) {
		return
	}

	products, err := h.catalogService.SearchProducts(c.Request.Context(), query.Keyword)
	if err != nil {
		h.respondServiceError(c, err, "Failed to search products")
		return
	}

	status := http.StatusOK
	if len(products) == 0 {
		status = http.StatusNotFound
	}
	c.JSON(status, entity.ProductListResponse{Products: products, Total: len(products)})
}

// FindProduct обрабатывает GET /api/products/find?id=&sku=
func (h *CatalogHandler) FindProduct(c *gin.Context) {
	var query entity.FindQuery
	if !h.bindQuery(c, &query) {
		return
	}

	product, err := h.catalogService.FindByIDOrSKU(c.Request.Context(), query.ID, query.SKU)
	if err != nil {
		h.respondServiceError(c, err, "Failed to find product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// === CATEGORIES HANDLERS ===

// GetCategories обрабатывает GET /api/products/categories (кеш Redis)
func (h *CatalogHandler) GetCategories(c *gin.Context) {
	categories, err := h.catalogService.GetCategories(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "Failed to get categories")
		return
	}

	c.JSON(http.StatusOK, categories)
}

// === INGESTION HANDLERS ===

// LoadProducts обрабатывает POST /api/products/load
func (h *CatalogHandler) LoadProducts(c *gin.Context) {
	result, err := h.ingestionService.Ingest(c.Request.Context(), service.TriggerAPI)
	if err != nil {
		var ingErr *service.IngestionError
		if !errors.As(err, &ingErr) {
			log := logger.FromContext(c.Request.Context())
			log.Error().Err(err).Msg("Unexpected ingestion error")
			respondError(c, http.StatusInternalServerError, "Failed to load products")
			return
		}

		status, message := ingestionFailure(ingErr.Kind)
		c.JSON(status, entity.IngestionResponse{
			RunID:     ingErr.RunID,
			Status:    entity.IngestionStatusFailed,
			Attempts:  ingErr.Attempts,
			ErrorKind: string(ingErr.Kind),
			Message:   message,
		})
		return
	}

	c.JSON(http.StatusOK, entity.IngestionResponse{
		RunID:         result.RunID,
		Status:        entity.IngestionStatusSuccess,
		Ingested:      result.Ingested,
		Attempts:      result.Attempts,
		IndexFailures: result.IndexFailures,
	})
}

// ReindexProducts обрабатывает POST /api/products/reindex
func (h *CatalogHandler) ReindexProducts(c *gin.Context) {
	n, err := h.ingestionService.Reindex(c.Request.Context())
	if err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("Reindex failed")
		respondError(c, http.StatusInternalServerError, "Failed to rebuild search index")
		return
	}

	c.JSON(http.StatusOK, entity.ReindexResponse{Reindexed: n})
}

// GetLoadHistory обрабатывает GET /api/products/load/history?limit=
func (h *CatalogHandler) GetLoadHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			respondError(c, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	runs, err := h.ingestionService.History(c.Request.Context(), limit)
	if err != nil {
		h.respondServiceError(c, err, "Failed to get load history")
		return
	}

	c.JSON(http.StatusOK, entity.IngestionRunListResponse{Runs: runs, Total: len(runs)})
}

// === HELPER FUNCTIONS ===

func (h *CatalogHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return h.validate(c, req)
}

func (h *CatalogHandler) bindQuery(c *gin.Context, query interface{}) bool {
	if err := c.ShouldBindQuery(query); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid query parameters")
		return false
	}
	return h.validate(c, query)
}

func (h *CatalogHandler) validate(c *gin.Context, req interface{}) bool {
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: "Validation failed",
			Details: entity.FieldErrors(err),
		})
		return false
	}
	return true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return id, true
}

// respondServiceError переводит ошибки сервиса в HTTP статусы
// 500 содержит только общее сообщение, подробности уходят в лог
func (h *CatalogHandler) respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "Product not found")
	case errors.Is(err, service.ErrProductExists):
		respondError(c, http.StatusConflict, "Product with this ID already exists")
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, "SKU already belongs to another product")
	case errors.Is(err, service.ErrIDMismatch):
		respondError(c, http.StatusBadRequest, "Product ID in body does not match path")
	case errors.Is(err, service.ErrMissingLookupKey):
		respondError(c, http.StatusBadRequest, "Either id or sku must be provided")
	default:
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg(fallback)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func ingestionFailure(kind service.IngestionErrorKind) (int, string) {
	switch kind {
	case service.TransportUnavailable:
		return http.StatusServiceUnavailable, "Product feed is unavailable, catalog left unchanged"
	case service.MalformedPayload:
		return http.StatusBadGateway, "Product feed returned an invalid payload"
	case service.ReconciliationConflict:
		return http.StatusConflict, "Feed conflicts with existing products, batch rejected"
	default:
		return http.StatusInternalServerError, "Failed to store products"
	}
}

// respondError отправляет ответ об ошибке
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
