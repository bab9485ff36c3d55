package processor

import (
	"context"
	"errors"
	"testing"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockIngestionService мок для IngestionServiceInterface
type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Ingest(ctx context.Context, trigger string) (*service.IngestionResult, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestionResult), args.Error(1)
}

func (m *MockIngestionService) History(ctx context.Context, limit int) ([]entity.IngestionRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.IngestionRun), args.Error(1)
}

func (m *MockIngestionService) Reindex(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// ===================== NewCronScheduler Tests =====================

func TestNewCronScheduler(t *testing.T) {
	// Arrange
	mockSvc := new(MockIngestionService)

	// Act
	scheduler := NewCronScheduler(mockSvc)

	// Assert
	assert.NotNil(t, scheduler)
	assert.NotNil(t, scheduler.cron)
	assert.Equal(t, mockSvc, scheduler.ingestionSvc)
}

// ===================== Start Tests =====================

func TestCronScheduler_Start_RegistersBothJobs(t *testing.T) {
	// Arrange
	mockSvc := new(MockIngestionService)
	scheduler := NewCronScheduler(mockSvc)

	// Act
	err := scheduler.Start(context.Background(), Schedules{FeedRefresh: "*/30 * * * *", Reindex: "@every 1h"})

	// Assert
	assert.NoError(t, err)
	assert.Len(t, scheduler.GetEntries(), 2)

	// Cleanup
	scheduler.Stop()
	mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestCronScheduler_Start_EmptySchedulesDisableJobs(t *testing.T) {
	// Arrange
	scheduler := NewCronScheduler(new(MockIngestionService))

	// Act
	err := scheduler.Start(context.Background(), Schedules{Reindex: "@every 1h"})

	// Assert
	assert.NoError(t, err)
	assert.Len(t, scheduler.GetEntries(), 1)

	scheduler.Stop()
}

func TestCronScheduler_Start_InvalidSchedule(t *testing.T) {
	// Arrange
	scheduler := NewCronScheduler(new(MockIngestionService))

	// Act
	err := scheduler.Start(context.Background(), Schedules{FeedRefresh: "invalid cron expression"})

	// Assert
	assert.Error(t, err)
}

func TestCronScheduler_Start_LoadOnStart(t *testing.T) {
	// Arrange
	mockSvc := new(MockIngestionService)
	scheduler := NewCronScheduler(mockSvc)
	mockSvc.On("Ingest", mock.Anything, service.TriggerStartup).
		Return(&service.IngestionResult{RunID: "run-1", Ingested: 30, Attempts: 1}, nil).Once()

	// Act
	err := scheduler.Start(context.Background(), Schedules{FeedRefresh: "@every 1h", LoadOnStart: true})

	// Assert
	assert.NoError(t, err)
	scheduler.Stop()
	mockSvc.AssertExpectations(t)
}

func TestCronScheduler_Start_InitialLoadError_ContinuesWork(t *testing.T) {
	// Arrange
	mockSvc := new(MockIngestionService)
	scheduler := NewCronScheduler(mockSvc)
	mockSvc.On("Ingest", mock.Anything, service.TriggerStartup).
		Return(nil, &service.IngestionError{Kind: service.TransportUnavailable, Attempts: 3, Err: errors.New("timeout")})

	// Act
	err := scheduler.Start(context.Background(), Schedules{FeedRefresh: "@every 1h", LoadOnStart: true})

	// Assert
	assert.NoError(t, err)
	assert.Len(t, scheduler.GetEntries(), 1)

	scheduler.Stop()
}

// ===================== Job Tests =====================

func TestCronScheduler_Reindex(t *testing.T) {
	// Arrange
	mockSvc := new(MockIngestionService)
	scheduler := NewCronScheduler(mockSvc)
	ctx := context.Background()
	mockSvc.On("Reindex", ctx).Return(12, nil).Once()
	mockSvc.On("Reindex", ctx).Return(0, errors.New("index unavailable")).Once()

	// Act
	scheduler.reindex(ctx)
	scheduler.reindex(ctx)

	// Assert
	mockSvc.AssertNumberOfCalls(t, "Reindex", 2)
}
