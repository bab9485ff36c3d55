package processor

import (
	"context"
	"fmt"

	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Schedules - расписания фоновых задач, пустая строка отключает задачу
type Schedules struct {
	FeedRefresh string
	Reindex     string
	LoadOnStart bool
}

// CronScheduler периодически перезагружает фид и перестраивает поисковый индекс
type CronScheduler struct {
	cron         *cron.Cron
	ingestionSvc service.IngestionServiceInterface
}

func NewCronScheduler(ingestionSvc service.IngestionServiceInterface) *CronScheduler {
	cronLogger := cron.PrintfLogger(logger.Logger())
	c := cron.New(
		cron.WithLogger(cronLogger),
		// Следующий запуск пропускается, пока предыдущий не завершился
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
	)

	return &CronScheduler{
		cron:         c,
		ingestionSvc: ingestionSvc,
	}
}

func (s *CronScheduler) Start(ctx context.Context, schedules Schedules) error {
	logger.Info().
		Str("feed_refresh", schedules.FeedRefresh).
		Str("reindex", schedules.Reindex).
		Msg("Starting cron scheduler")

	if schedules.FeedRefresh != "" {
		if _, err := s.cron.AddFunc(schedules.FeedRefresh, func() { s.refreshFeed(ctx, service.TriggerCron) }); err != nil {
			return fmt.Errorf("invalid feed refresh schedule %q: %w", schedules.FeedRefresh, err)
		}
	}

	if schedules.Reindex != "" {
		if _, err := s.cron.AddFunc(schedules.Reindex, func() { s.reindex(ctx) }); err != nil {
			return fmt.Errorf("invalid reindex schedule %q: %w", schedules.Reindex, err)
		}
	}

	s.cron.Start()
	logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Cron scheduler started")

	if schedules.LoadOnStart {
		logger.Info().Msg("Performing initial catalog load...")
		s.refreshFeed(ctx, service.TriggerStartup)
	}

	return nil
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}

// refreshFeed - ошибка загрузки не останавливает планировщик, каталог остаётся прежним
func (s *CronScheduler) refreshFeed(ctx context.Context, trigger string) {
	log := logger.WithFields(map[string]interface{}{
		"job":     "feed_refresh",
		"trigger": trigger,
	})

	result, err := s.ingestionSvc.Ingest(ctx, trigger)
	if err != nil {
		log.Warn().Err(err).Msg("Scheduled catalog load failed")
		return
	}
	log.Info().
		Str("run_id", result.RunID).
		Int("ingested", result.Ingested).
		Msg("Scheduled catalog load completed")
}

func (s *CronScheduler) reindex(ctx context.Context) {
	n, err := s.ingestionSvc.Reindex(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Scheduled reindex failed")
		return
	}
	logger.Info().Int("reindexed", n).Msg("Scheduled reindex completed")
}
