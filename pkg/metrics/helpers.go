package metrics

import (
	"database/sql"
	"time"
)

// =============================================================================
// Redis
// =============================================================================

type RedisOperation string

const (
	RedisOpGet      RedisOperation = "get"
	RedisOpSet      RedisOperation = "set"
	RedisOpDel      RedisOperation = "del"
	RedisOpPing     RedisOperation = "ping"
	RedisOpZAdd     RedisOperation = "zadd"
	RedisOpZRange   RedisOperation = "zrange"
	RedisOpSMembers RedisOperation = "smembers"
	RedisOpScan     RedisOperation = "scan"
	RedisOpPipeline RedisOperation = "pipeline"
)

type RedisTimer struct {
	service   string
	operation RedisOperation
	start     time.Time
}

func NewRedisTimer(service string, op RedisOperation) *RedisTimer {
	return &RedisTimer{
		service:   service,
		operation: op,
		start:     time.Now(),
	}
}

func (rt *RedisTimer) ObserveDuration() {
	duration := time.Since(rt.start).Seconds()
	RedisOperationDuration.WithLabelValues(rt.service, string(rt.operation)).Observe(duration)
}

func RecordCacheHit(service, keyPrefix string) {
	RedisCacheHits.WithLabelValues(service, keyPrefix).Inc()
}

func RecordCacheMiss(service, keyPrefix string) {
	RedisCacheMisses.WithLabelValues(service, keyPrefix).Inc()
}

func RecordRedisError(service string, op RedisOperation) {
	RedisErrors.WithLabelValues(service, string(op)).Inc()
}

// =============================================================================
// Kafka
// =============================================================================

func RecordKafkaMessageProduced(service, topic string, duration time.Duration) {
	KafkaMessagesProduced.WithLabelValues(service, topic).Inc()
	KafkaProduceDuration.WithLabelValues(service, topic).Observe(duration.Seconds())
}

func RecordKafkaError(service, topic, operation string) {
	KafkaErrors.WithLabelValues(service, topic, operation).Inc()
}

type KafkaProduceTimer struct {
	service string
	topic   string
	start   time.Time
}

func NewKafkaProduceTimer(service, topic string) *KafkaProduceTimer {
	return &KafkaProduceTimer{
		service: service,
		topic:   topic,
		start:   time.Now(),
	}
}

func (kt *KafkaProduceTimer) Success() {
	RecordKafkaMessageProduced(kt.service, kt.topic, time.Since(kt.start))
}

func (kt *KafkaProduceTimer) Error() {
	RecordKafkaError(kt.service, kt.topic, "produce")
}

// =============================================================================
// Database
// =============================================================================

type DbOperation string

const (
	DbOpSelect DbOperation = "select"
	DbOpInsert DbOperation = "insert"
	DbOpUpsert DbOperation = "upsert"
	DbOpDelete DbOperation = "delete"
)

type DbTimer struct {
	service   string
	operation DbOperation
	table     string
	start     time.Time
}

func NewDbTimer(service string, op DbOperation, table string) *DbTimer {
	return &DbTimer{
		service:   service,
		operation: op,
		table:     table,
		start:     time.Now(),
	}
}

func (dt *DbTimer) ObserveDuration() {
	duration := time.Since(dt.start).Seconds()
	DbQueryDuration.WithLabelValues(dt.service, string(dt.operation), dt.table).Observe(duration)
}

func RecordDbError(service string, op DbOperation) {
	DbErrors.WithLabelValues(service, string(op)).Inc()
}

// RecordDbPoolStats выгружает состояние пула соединений в DbConnectionsOpen
func RecordDbPoolStats(service string, stats sql.DBStats) {
	DbConnectionsOpen.WithLabelValues(service, "idle").Set(float64(stats.Idle))
	DbConnectionsOpen.WithLabelValues(service, "in_use").Set(float64(stats.InUse))
}

// =============================================================================
// Catalog
// =============================================================================

// RecordIngestionRun фиксирует итог одного запуска ingestion
func RecordIngestionRun(status string, attempts int, ingested int) {
	CatalogIngestionRuns.WithLabelValues(status).Inc()
	if attempts > 0 {
		CatalogIngestionAttempts.Observe(float64(attempts))
	}
	if ingested > 0 {
		CatalogProductsIngested.Add(float64(ingested))
	}
}

func RecordIndexOperation(backend, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SearchIndexOperations.WithLabelValues(backend, operation, status).Inc()
}

func RecordIndexInconsistency(source string, count int) {
	if count <= 0 {
		return
	}
	SearchIndexInconsistencies.WithLabelValues(source).Add(float64(count))
}

// =============================================================================
// Timer
// =============================================================================

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) Seconds() float64 {
	return time.Since(t.start).Seconds()
}
