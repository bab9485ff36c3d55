package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Хелперы для создания тестового окружения

func setupTestHandler() (*CatalogHandler, *MockCatalogService, *MockIngestionService) {
	catalogSvc := new(MockCatalogService)
	ingestionSvc := new(MockIngestionService)
	return NewCatalogHandler(catalogSvc, ingestionSvc), catalogSvc, ingestionSvc
}

func newTestRequest(id int64, sku string) entity.ProductRequest {
	date := time.Date(2024, 5, 23, 8, 56, 21, 0, time.UTC)
	return entity.ProductRequest{
		ID:                   id,
		Title:                "Essence Mascara Lash Princess",
		Description:          "Popular mascara known for its volumizing effects",
		Category:             "beauty",
		Price:                9.99,
		DiscountPercentage:   7.17,
		Rating:               4.94,
		Stock:                5,
		Tags:                 []string{"beauty", "mascara"},
		SKU:                  sku,
		Weight:               2,
		Dimensions:           &entity.DimensionsRequest{Width: 23.17, Height: 14.43, Depth: 28.01},
		WarrantyInformation:  "1 month warranty",
		ShippingInformation:  "Ships in 1 month",
		AvailabilityStatus:   "Low Stock",
		ReturnPolicy:         "30 days return policy",
		MinimumOrderQuantity: 24,
		Meta:                 &entity.MetaRequest{CreatedAt: date, UpdatedAt: date, Barcode: "9164035109868"},
		Reviews: []entity.ReviewRequest{{
			Rating:        5,
			Comment:       "Very satisfied!",
			Date:          date,
			ReviewerName:  "Eleanor Collins",
			ReviewerEmail: "eleanor.collins@x.dummyjson.com",
		}},
		Images:    []string{"https://cdn.dummyjson.com/products/images/1.png"},
		Thumbnail: "https://cdn.dummyjson.com/products/images/thumbnail.png",
	}
}

func newTestProduct(id int64) *entity.Product {
	req := newTestRequest(id, "BEA-ESS-001")
	return entity.ToProduct(&req)
}

func newJSONContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func withID(c *gin.Context, id string) {
	c.Params = gin.Params{{Key: "id", Value: id}}
}

// ==================== Create Handler Tests ====================

func TestCatalogHandler_CreateProduct_Success(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("CreateProduct", mock.Anything, mock.AnythingOfType("*entity.ProductRequest")).Return(newTestProduct(1), nil)

	c, w := newJSONContext(http.MethodPost, "/api/products", newTestRequest(1, "BEA-ESS-001"))

	// Act
	handler.CreateProduct(c)

	// Assert
	assert.Equal(t, http.StatusCreated, w.Code)

	var response entity.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.ID)
	assert.Equal(t, "BEA-ESS-001", response.SKU)
	catalogSvc.AssertExpectations(t)
}

func TestCatalogHandler_CreateProduct_InvalidJSON(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	c, w := newJSONContext(http.MethodPost, "/api/products", "invalid json")

	// Act
	handler.CreateProduct(c)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	catalogSvc.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestCatalogHandler_CreateProduct_ValidationError(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	req := newTestRequest(1, "BAD SKU!")
	req.Price = 0

	c, w := newJSONContext(http.MethodPost, "/api/products", req)

	// Act
	handler.CreateProduct(c)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response entity.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	fields := make([]string, 0, len(response.Details))
	for _, d := range response.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"price", "sku"}, fields)
	catalogSvc.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestCatalogHandler_CreateProduct_Conflicts(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "id taken", err: service.ErrProductExists},
		{name: "sku taken", err: service.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler, catalogSvc, _ := setupTestHandler()
			catalogSvc.On("CreateProduct", mock.Anything, mock.Anything).Return(nil, tt.err)
			c, w := newJSONContext(http.MethodPost, "/api/products", newTestRequest(1, "BEA-ESS-001"))

			// Act
			handler.CreateProduct(c)

			// Assert
			assert.Equal(t, http.StatusConflict, w.Code)
		})
	}
}

// ==================== Read Handler Tests ====================

func TestCatalogHandler_GetAllProducts_Success(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("GetAllProducts", mock.Anything).Return([]entity.Product{*newTestProduct(1), *newTestProduct(2)}, nil)
	c, w := newJSONContext(http.MethodGet, "/api/products", nil)

	// Act
	handler.GetAllProducts(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	var response entity.ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Total)
}

func TestCatalogHandler_GetProduct_InvalidID(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	c, w := newJSONContext(http.MethodGet, "/api/products/abc", nil)
	withID(c, "abc")

	// Act
	handler.GetProduct(c)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	catalogSvc.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
}

func TestCatalogHandler_GetProduct_NotFound(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("GetProduct", mock.Anything, int64(404)).Return(nil, service.ErrProductNotFound)
	c, w := newJSONContext(http.MethodGet, "/api/products/404", nil)
	withID(c, "404")

	// Act
	handler.GetProduct(c)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogHandler_GetProduct_InternalErrorHidesDetails(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("GetProduct", mock.Anything, int64(1)).Return(nil, errors.New("pq: password authentication failed"))
	c, w := newJSONContext(http.MethodGet, "/api/products/1", nil)
	withID(c, "1")

	// Act
	handler.GetProduct(c)

	// Assert
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

// ==================== Update Handler Tests ====================

func TestCatalogHandler_UpdateProduct_Success(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("UpdateProduct", mock.Anything, int64(1), mock.AnythingOfType("*entity.ProductRequest")).Return(newTestProduct(1), nil)
	c, w := newJSONContext(http.MethodPut, "/api/products/1", newTestRequest(1, "BEA-ESS-001"))
	withID(c, "1")

	// Act
	handler.UpdateProduct(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	catalogSvc.AssertExpectations(t)
}

func TestCatalogHandler_UpdateProduct_IDMismatch(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("UpdateProduct", mock.Anything, int64(1), mock.Anything).Return(nil, service.ErrIDMismatch)
	c, w := newJSONContext(http.MethodPut, "/api/products/1", newTestRequest(2, "BEA-ESS-001"))
	withID(c, "1")

	// Act
	handler.UpdateProduct(c)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandler_PatchProduct_Success(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("PatchProduct", mock.Anything, int64(1), mock.MatchedBy(func(req *entity.ProductPatchRequest) bool {
		return req.Price != nil && *req.Price == 5 && req.Title == nil
	})).Return(newTestProduct(1), nil)
	c, w := newJSONContext(http.MethodPatch, "/api/products/1", `{"price": 5}`)
	withID(c, "1")

	// Act
	handler.PatchProduct(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	catalogSvc.AssertExpectations(t)
}

func TestCatalogHandler_PatchProduct_ValidationError(t *testing.T) {
	// Arrange
	handler, _, _ := setupTestHandler()
	c, w := newJSONContext(http.MethodPatch, "/api/products/1", `{"rating": 7}`)
	withID(c, "1")

	// Act
	handler.PatchProduct(c)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "rating")
}

// ==================== Delete Handler Tests ====================

func TestCatalogHandler_DeleteProduct_Success(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("DeleteProduct", mock.Anything, int64(1)).Return(nil)
	c, w := newJSONContext(http.MethodDelete, "/api/products/1", nil)
	withID(c, "1")

	// Act
	handler.DeleteProduct(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogHandler_DeleteProduct_NotFound(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("DeleteProduct", mock.Anything, int64(1)).Return(service.ErrProductNotFound)
	c, w := newJSONContext(http.MethodDelete, "/api/products/1", nil)
	withID(c, "1")

	// Act
	handler.DeleteProduct(c)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ==================== Search Handler Tests ====================

func TestCatalogHandler_SearchProducts_Found(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("SearchProducts", mock.Anything, "lash princess").Return([]entity.Product{*newTestProduct(1)}, nil)
	c, w := newJSONContext(http.MethodGet, "/api/products/search?keyword=lash+princess", nil)

	// Act
	handler.SearchProducts(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	var response entity.ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Total)
}

func TestCatalogHandler_SearchProducts_NothingFound(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("SearchProducts", mock.Anything, "unicorn").Return([]entity.Product{}, nil)
	c, w := newJSONContext(http.MethodGet, "/api/products/search?keyword=unicorn", nil)

	// Act
	handler.SearchProducts(c)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
	var response entity.ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotNil(t, response.Products)
	assert.Empty(t, response.Products)
}

func TestCatalogHandler_SearchProducts_InvalidKeyword(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	c, w := newJSONContext(http.MethodGet, "/api/products/search?keyword=%3Cscript%3E", nil)

	// Act
	handler.SearchProducts(c)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	catalogSvc.AssertNotCalled(t, "SearchProducts", mock.Anything, mock.Anything)
}

func TestCatalogHandler_FindProduct(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(svc *MockCatalogService)
		wantStatus int
	}{
		{
			name:   "by id",
			target: "/api/products/find?id=1",
			setup: func(svc *MockCatalogService) {
				svc.On("FindByIDOrSKU", mock.Anything, mock.MatchedBy(func(id *int64) bool { return id != nil && *id == 1 }), "").
					Return(newTestProduct(1), nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "by sku not found",
			target: "/api/products/find?sku=NOPE-1",
			setup: func(svc *MockCatalogService) {
				svc.On("FindByIDOrSKU", mock.Anything, (*int64)(nil), "NOPE-1").Return(nil, service.ErrProductNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "no keys",
			target: "/api/products/find",
			setup: func(svc *MockCatalogService) {
				svc.On("FindByIDOrSKU", mock.Anything, (*int64)(nil), "").Return(nil, service.ErrMissingLookupKey)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid sku",
			target:     "/api/products/find?sku=bad_sku",
			setup:      func(svc *MockCatalogService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler, catalogSvc, _ := setupTestHandler()
			tt.setup(catalogSvc)
			c, w := newJSONContext(http.MethodGet, tt.target, nil)

			// Act
			handler.FindProduct(c)

			// Assert
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCatalogHandler_GetCategories_Success(t *testing.T) {
	// Arrange
	handler, catalogSvc, _ := setupTestHandler()
	catalogSvc.On("GetCategories", mock.Anything).Return([]entity.CategorySummary{{Name: "beauty", Products: 5}}, nil)
	c, w := newJSONContext(http.MethodGet, "/api/products/categories", nil)

	// Act
	handler.GetCategories(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"beauty","products":5}]`, w.Body.String())
}

// ==================== Ingestion Handler Tests ====================

func TestCatalogHandler_LoadProducts_Success(t *testing.T) {
	// Arrange
	handler, _, ingestionSvc := setupTestHandler()
	ingestionSvc.On("Ingest", mock.Anything, service.TriggerAPI).
		Return(&service.IngestionResult{RunID: "run-1", Ingested: 30, Attempts: 2}, nil)
	c, w := newJSONContext(http.MethodPost, "/api/products/load", nil)

	// Act
	handler.LoadProducts(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	var response entity.IngestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, entity.IngestionStatusSuccess, response.Status)
	assert.Equal(t, 30, response.Ingested)
	assert.Equal(t, 2, response.Attempts)
}

func TestCatalogHandler_LoadProducts_Failures(t *testing.T) {
	tests := []struct {
		kind       service.IngestionErrorKind
		wantStatus int
	}{
		{kind: service.TransportUnavailable, wantStatus: http.StatusServiceUnavailable},
		{kind: service.MalformedPayload, wantStatus: http.StatusBadGateway},
		{kind: service.ReconciliationConflict, wantStatus: http.StatusConflict},
		{kind: service.IngestionInternal, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			// Arrange
			handler, _, ingestionSvc := setupTestHandler()
			ingestionSvc.On("Ingest", mock.Anything, service.TriggerAPI).
				Return(nil, &service.IngestionError{RunID: "run-2", Kind: tt.kind, Attempts: 3, Err: errors.New("boom")})
			c, w := newJSONContext(http.MethodPost, "/api/products/load", nil)

			// Act
			handler.LoadProducts(c)

			// Assert
			assert.Equal(t, tt.wantStatus, w.Code)
			var response entity.IngestionResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, entity.IngestionStatusFailed, response.Status)
			assert.Equal(t, string(tt.kind), response.ErrorKind)
			assert.Equal(t, 3, response.Attempts)
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestCatalogHandler_ReindexProducts(t *testing.T) {
	// Arrange
	handler, _, ingestionSvc := setupTestHandler()
	ingestionSvc.On("Reindex", mock.Anything).Return(42, nil)
	c, w := newJSONContext(http.MethodPost, "/api/products/reindex", nil)

	// Act
	handler.ReindexProducts(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reindexed":42}`, w.Body.String())
}

func TestCatalogHandler_GetLoadHistory(t *testing.T) {
	// Arrange
	handler, _, ingestionSvc := setupTestHandler()
	ingestionSvc.On("History", mock.Anything, 5).Return([]entity.IngestionRun{{RunID: "run-1"}}, nil)
	c, w := newJSONContext(http.MethodGet, "/api/products/load/history?limit=5", nil)

	// Act
	handler.GetLoadHistory(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	var response entity.IngestionRunListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Total)
}

func TestCatalogHandler_GetLoadHistory_InvalidLimit(t *testing.T) {
	// Arrange
	handler, _, ingestionSvc := setupTestHandler()
	c, w := newJSONContext(http.MethodGet, "/api/products/load/history?limit=1000", nil)

	// Act
	handler.GetLoadHistory(c)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	ingestionSvc.AssertNotCalled(t, "History", mock.Anything, mock.Anything)
}
