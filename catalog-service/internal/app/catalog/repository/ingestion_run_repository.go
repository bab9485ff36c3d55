package repository

import (
	"context"
	"fmt"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ingestionRunRepository struct {
	collection *mongo.Collection
}

// NewIngestionRunRepository создает репозиторий истории запусков в MongoDB
// и индекс по started_at для выборки последних запусков
func NewIngestionRunRepository(db *mongo.Database, collectionName string) IngestionRunRepository {
	collection := db.Collection(collectionName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "started_at", Value: -1}},
		Options: options.Index().SetName("started_at_idx"),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		// Индекс может уже существовать, работа продолжается
		logger.Warn().Err(err).Str("collection", collectionName).Msg("Failed to create started_at index")
	}

	return newIngestionRunRepository(collection)
}

func newIngestionRunRepository(collection *mongo.Collection) *ingestionRunRepository {
	return &ingestionRunRepository{collection: collection}
}

// Save сохраняет запись о запуске
func (r *ingestionRunRepository) Save(ctx context.Context, run *entity.IngestionRun) error {
	if _, err := r.collection.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("failed to save ingestion run: %w", err)
	}
	return nil
}

// ListRecent возвращает последние запуски, новые первыми
func (r *ingestionRunRepository) ListRecent(ctx context.Context, limit int) ([]entity.IngestionRun, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ingestion runs: %w", err)
	}
	defer cursor.Close(ctx)

	runs := make([]entity.IngestionRun, 0, limit)
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode ingestion runs: %w", err)
	}
	return runs, nil
}
