//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Для E2E тестов сервис должен быть запущен через docker-compose
// с тем же JWT_SECRET и доступным внешним фидом
var (
	baseURL   = getEnv("E2E_BASE_URL", "http://localhost:8081")
	jwtSecret = getEnv("JWT_SECRET", "your-secret-key-change-this-in-production")
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// managerToken выпускает токен так же, как сервис авторизации
func managerToken(t *testing.T) string {
	claims := jwt.MapClaims{
		"user_id":   uuid.NewString(),
		"email":     "manager@example.com",
		"role_name": "manager",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, client *http.Client, method, path, token string, body any) *http.Response {
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req, err := http.NewRequest(method, baseURL+path, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target any) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func newProductRequest(id int64, sku string) entity.ProductRequest {
	date := time.Now().UTC().Truncate(time.Second)
	return entity.ProductRequest{
		ID:                   id,
		Title:                "Zyxwv Serum",
		Description:          "Unique e2e serum zyxwv",
		Category:             "beauty",
		Price:                19.99,
		Stock:                3,
		Tags:                 []string{"beauty"},
		SKU:                  sku,
		Weight:               1,
		Dimensions:           &entity.DimensionsRequest{Width: 1, Height: 2, Depth: 3},
		WarrantyInformation:  "No warranty",
		ShippingInformation:  "Ships overnight",
		AvailabilityStatus:   "In Stock",
		ReturnPolicy:         "No return policy",
		MinimumOrderQuantity: 1,
		Meta:                 &entity.MetaRequest{CreatedAt: date, UpdatedAt: date},
		Reviews: []entity.ReviewRequest{{
			Rating:        4,
			Comment:       "Works",
			Date:          date,
			ReviewerName:  "E2E Reviewer",
			ReviewerEmail: "reviewer@example.com",
		}},
		Images:    []string{"https://example.com/serum.png"},
		Thumbnail: "https://example.com/serum-thumb.png",
	}
}

// TestFullCatalogFlow проходит полный цикл работы с каталогом:
// 1. Загрузка внешнего фида
// 2. Создание товара
// 3. Поиск товара по ключевому слову
// 4. Поиск по SKU
// 5. Удаление товара и исчезновение из поиска
func TestFullCatalogFlow(t *testing.T) {
	client := &http.Client{Timeout: 30 * time.Second}
	token := managerToken(t)

	// ==================== Step 1: Load Feed ====================
	t.Log("Step 1: Loading external feed")

	resp := doJSON(t, client, http.MethodPost, "/api/products/load", token, nil)
	var ingestion entity.IngestionResponse
	status := resp.StatusCode
	decode(t, resp, &ingestion)

	require.Equal(t, http.StatusOK, status, "Feed load should succeed: %s", ingestion.Message)
	assert.Equal(t, entity.IngestionStatusSuccess, ingestion.Status)
	assert.Greater(t, ingestion.Ingested, 0)
	t.Logf("Ingested %d products in %d attempts (run %s)", ingestion.Ingested, ingestion.Attempts, ingestion.RunID)

	// ==================== Step 2: Create Product ====================
	t.Log("Step 2: Creating product")

	productID := 900000 + time.Now().UnixNano()%100000
	sku := fmt.Sprintf("E2E-%d", productID)
	resp = doJSON(t, client, http.MethodPost, "/api/products", token, newProductRequest(productID, sku))
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "Product creation should succeed")

	var created entity.Product
	decode(t, resp, &created)
	assert.Equal(t, productID, created.ID)
	assert.Equal(t, sku, created.SKU)

	// ==================== Step 3: Search ====================
	t.Log("Step 3: Searching by keyword")

	resp = doJSON(t, client, http.MethodGet, "/api/products/search?keyword=zyxwv", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var found entity.ProductListResponse
	decode(t, resp, &found)
	require.NotEmpty(t, found.Products)
	assert.Equal(t, productID, found.Products[0].ID)

	// ==================== Step 4: Find by SKU ====================
	t.Log("Step 4: Finding by SKU")

	resp = doJSON(t, client, http.MethodGet, "/api/products/find?sku="+sku, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var bySKU entity.Product
	decode(t, resp, &bySKU)
	assert.Equal(t, productID, bySKU.ID)

	// ==================== Step 5: Delete ====================
	t.Log("Step 5: Deleting product")

	resp = doJSON(t, client, http.MethodDelete, fmt.Sprintf("/api/products/%d", productID), token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, client, http.MethodGet, fmt.Sprintf("/api/products/%d", productID), "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, client, http.MethodGet, "/api/products/search?keyword=zyxwv", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "Deleted product must not be found")

	t.Log("Catalog flow completed successfully")
}

// TestMutationsRequireAuth проверяет, что изменения без токена отклоняются
func TestMutationsRequireAuth(t *testing.T) {
	client := &http.Client{Timeout: 10 * time.Second}

	resp := doJSON(t, client, http.MethodPost, "/api/products/load", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, client, http.MethodDelete, "/api/products/1", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
