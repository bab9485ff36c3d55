package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"productcatalog/pkg/metrics"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	backendElastic = "elasticsearch"
	// Размер страницы выдачи, не больше index.max_result_window
	defaultPageSize = 1000
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"id":          { "type": "long" },
			"title":       { "type": "text" },
			"description": { "type": "text" }
		}
	}
}`

// ElasticIndex хранит документы товаров в индексе Elasticsearch.
// Запись выполняется с refresh=true, чтобы Match сразу видел изменения
type ElasticIndex struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
}

type elasticDocument struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type elasticHit struct {
	Source elasticDocument  `json:"_source"`
	Sort   []json.RawMessage `json:"sort"`
}

type elasticSearchResponse struct {
	Hits struct {
		Hits []elasticHit `json:"hits"`
	} `json:"hits"`
}

// NewElasticClient создаёт клиента для списка узлов
func NewElasticClient(addresses []string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return client, nil
}

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	return &ElasticIndex{client: client, index: index, pageSize: defaultPageSize}
}

// EnsureIndex создаёт индекс с маппингом, существующий индекс не ошибка
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", e.index, err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(readBody(res), "resource_already_exists_exception") {
		return fmt.Errorf("failed to create index %s: %s", e.index, res.Status())
	}
	return nil
}

func (e *ElasticIndex) Index(ctx context.Context, doc Document) error {
	body, err := json.Marshal(elasticDocument{ID: doc.ID, Title: doc.Title, Description: doc.Description})
	if err != nil {
		return fmt.Errorf("failed to marshal document %d: %w", doc.ID, err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithDocumentID(strconv.FormatInt(doc.ID, 10)),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	err = checkResponse(res, err, false)
	metrics.RecordIndexOperation(backendElastic, "index", err)
	if err != nil {
		return fmt.Errorf("failed to index product %d: %w", doc.ID, err)
	}
	return nil
}

func (e *ElasticIndex) Remove(ctx context.Context, id int64) error {
	res, err := e.client.Delete(
		e.index,
		strconv.FormatInt(id, 10),
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	err = checkResponse(res, err, true)
	metrics.RecordIndexOperation(backendElastic, "remove", err)
	if err != nil {
		return fmt.Errorf("failed to remove product %d from index: %w", id, err)
	}
	return nil
}

// Match читает всю выдачу страницами через search_after по ключу сортировки (_score, id)
func (e *ElasticIndex) Match(ctx context.Context, keyword string) ([]int64, error) {
	if len(queryTokens(keyword)) == 0 {
		return []int64{}, nil
	}

	ids := make([]int64, 0)
	seen := make(map[int64]struct{})
	var after []json.RawMessage
	for {
		hits, err := e.searchPage(ctx, keyword, after)
		if err != nil {
			metrics.RecordIndexOperation(backendElastic, "match", err)
			return nil, fmt.Errorf("failed to match %q: %w", keyword, err)
		}

		for _, hit := range hits {
			if _, ok := seen[hit.Source.ID]; ok {
				continue
			}
			seen[hit.Source.ID] = struct{}{}
			ids = append(ids, hit.Source.ID)
		}

		if len(hits) < e.pageSize || len(hits[len(hits)-1].Sort) == 0 {
			break
		}
		after = hits[len(hits)-1].Sort
	}

	metrics.RecordIndexOperation(backendElastic, "match", nil)
	return ids, nil
}

// searchPage возвращает одну страницу выдачи, отсутствующий индекс - пустая страница
func (e *ElasticIndex) searchPage(ctx context.Context, keyword string, after []json.RawMessage) ([]elasticHit, error) {
	query := map[string]interface{}{
		"size":    e.pageSize,
		"_source": []string{"id"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    keyword,
				"fields":   []string{"title^2", "description"},
				"operator": "or",
			},
		},
		"sort": []map[string]interface{}{
			{"_score": "desc"},
			{"id": "asc"},
		},
	}
	if len(after) > 0 {
		query["search_after"] = after
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		// Индекс ещё не создан
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned %s", res.Status())
	}

	var parsed elasticSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Hits.Hits, nil
}

// Clear удаляет все документы индекса, сам индекс и маппинг сохраняются
func (e *ElasticIndex) Clear(ctx context.Context) error {
	res, err := e.client.DeleteByQuery(
		[]string{e.index},
		strings.NewReader(`{"query":{"match_all":{}}}`),
		e.client.DeleteByQuery.WithConflicts("proceed"),
		e.client.DeleteByQuery.WithRefresh(true),
		e.client.DeleteByQuery.WithContext(ctx),
	)
	err = checkResponse(res, err, true)
	metrics.RecordIndexOperation(backendElastic, "clear", err)
	if err != nil {
		return fmt.Errorf("failed to clear index %s: %w", e.index, err)
	}
	return nil
}

// Ping проверяет доступность кластера для readiness
func (e *ElasticIndex) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	return checkResponse(res, err, false)
}

// checkResponse закрывает тело ответа и превращает HTTP ошибку в error.
// allowNotFound - 404 считается успехом (удаление отсутствующего документа)
func checkResponse(res *esapi.Response, err error, allowNotFound bool) error {
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if allowNotFound && res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch returned %s: %s", res.Status(), readBody(res))
	}
	return nil
}

func readBody(res *esapi.Response) string {
	data, err := io.ReadAll(io.LimitReader(res.Body, 1024))
	if err != nil {
		return ""
	}
	return string(data)
}
