package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
)

var (
	// ErrFeedTransport - фид недоступен: ошибка соединения, таймаут, обрыв чтения
	ErrFeedTransport = errors.New("feed transport error")
	// ErrMalformedPayload - ответ получен, но не соответствует формату фида
	ErrMalformedPayload = errors.New("malformed feed payload")
)

// Ограничение размера ответа фида
const maxFeedBodySize = 64 << 20

// StatusError - фид ответил статусом не из 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed returned status %d: %s", e.StatusCode, e.Body)
}

// FeedClient клиент внешнего фида товаров (формат dummyjson: products, total, skip, limit)
// Отвечает только за HTTP запрос и разбор ответа, повторы выполняет вызывающая сторона
type FeedClient struct {
	feedURL    string
	httpClient *http.Client
}

// NewFeedClient создает клиента фида, timeout ограничивает одну попытку целиком
func NewFeedClient(feedURL string, timeout time.Duration) *FeedClient {
	return &FeedClient{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchProducts загружает товары из фида
func (c *FeedClient) FetchProducts(ctx context.Context) (*entity.FeedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrFeedTransport, err)
	}

	var payload entity.FeedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Products == nil {
		return nil, fmt.Errorf("%w: products field is missing", ErrMalformedPayload)
	}

	return &payload, nil
}
