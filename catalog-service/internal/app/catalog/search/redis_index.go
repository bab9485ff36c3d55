package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"productcatalog/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	backendRedis     = "redis"
	redisServiceName = "catalog"
	maxWatchRetries  = 5
)

// RedisIndex хранит инвертированный индекс в Redis:
//
//	<prefix>token:<t> - sorted set, member = ID, score = вес токена в документе
//	<prefix>doc:<id>  - set токенов документа (для замены и удаления)
//	<prefix>ids       - set всех проиндексированных ID
//
// Изменения одного документа выполняются в MULTI/EXEC под WATCH ключа документа
type RedisIndex struct {
	client *redis.Client
	prefix string
}

func NewRedisIndex(client *redis.Client, prefix string) *RedisIndex {
	if prefix == "" {
		prefix = "search:"
	}
	return &RedisIndex{client: client, prefix: prefix}
}

func (r *RedisIndex) tokenKey(token string) string { return r.prefix + "token:" + token }

func (r *RedisIndex) docKey(id int64) string { return r.prefix + "doc:" + strconv.FormatInt(id, 10) }

func (r *RedisIndex) idsKey() string { return r.prefix + "ids" }

func (r *RedisIndex) Index(ctx context.Context, doc Document) error {
	timer := metrics.NewRedisTimer(redisServiceName, metrics.RedisOpPipeline)
	defer timer.ObserveDuration()

	w := weights(doc)
	member := strconv.FormatInt(doc.ID, 10)

	err := r.watchDoc(ctx, doc.ID, func(tx *redis.Tx, old []string) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			r.unlink(ctx, pipe, doc.ID, old)
			tokens := make([]interface{}, 0, len(w))
			for token, weight := range w {
				pipe.ZAdd(ctx, r.tokenKey(token), redis.Z{Score: weight, Member: member})
				tokens = append(tokens, token)
			}
			if len(tokens) > 0 {
				pipe.SAdd(ctx, r.docKey(doc.ID), tokens...)
			}
			pipe.SAdd(ctx, r.idsKey(), member)
			return nil
		})
		return err
	})

	metrics.RecordIndexOperation(backendRedis, "index", err)
	if err != nil {
		metrics.RecordRedisError(redisServiceName, metrics.RedisOpPipeline)
		return fmt.Errorf("failed to index product %d: %w", doc.ID, err)
	}
	return nil
}

func (r *RedisIndex) Remove(ctx context.Context, id int64) error {
	timer := metrics.NewRedisTimer(redisServiceName, metrics.RedisOpPipeline)
	defer timer.ObserveDuration()

	err := r.watchDoc(ctx, id, func(tx *redis.Tx, old []string) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			r.unlink(ctx, pipe, id, old)
			pipe.SRem(ctx, r.idsKey(), strconv.FormatInt(id, 10))
			return nil
		})
		return err
	})

	metrics.RecordIndexOperation(backendRedis, "remove", err)
	if err != nil {
		metrics.RecordRedisError(redisServiceName, metrics.RedisOpPipeline)
		return fmt.Errorf("failed to remove product %d from index: %w", id, err)
	}
	return nil
}

func (r *RedisIndex) Match(ctx context.Context, keyword string) ([]int64, error) {
	timer := metrics.NewRedisTimer(redisServiceName, metrics.RedisOpZRange)
	defer timer.ObserveDuration()

	tokens := queryTokens(keyword)
	if len(tokens) == 0 {
		return []int64{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.ZSliceCmd, 0, len(tokens))
	for _, token := range tokens {
		cmds = append(cmds, pipe.ZRangeWithScores(ctx, r.tokenKey(token), 0, -1))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		metrics.RecordIndexOperation(backendRedis, "match", err)
		metrics.RecordRedisError(redisServiceName, metrics.RedisOpZRange)
		return nil, fmt.Errorf("failed to match %q: %w", keyword, err)
	}

	scores := make(map[int64]float64)
	for _, cmd := range cmds {
		for _, z := range cmd.Val() {
			member, ok := z.Member.(string)
			if !ok {
				continue
			}
			id, err := strconv.ParseInt(member, 10, 64)
			if err != nil {
				continue
			}
			scores[id] += z.Score
		}
	}

	metrics.RecordIndexOperation(backendRedis, "match", nil)
	return rank(scores), nil
}

// Clear удаляет все ключи индекса с данным префиксом
func (r *RedisIndex) Clear(ctx context.Context) error {
	timer := metrics.NewRedisTimer(redisServiceName, metrics.RedisOpScan)
	defer timer.ObserveDuration()

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 500).Result()
		if err != nil {
			metrics.RecordIndexOperation(backendRedis, "clear", err)
			metrics.RecordRedisError(redisServiceName, metrics.RedisOpScan)
			return fmt.Errorf("failed to scan index keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				metrics.RecordIndexOperation(backendRedis, "clear", err)
				metrics.RecordRedisError(redisServiceName, metrics.RedisOpDel)
				return fmt.Errorf("failed to delete index keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	metrics.RecordIndexOperation(backendRedis, "clear", nil)
	return nil
}

// Ping проверяет доступность Redis для readiness
func (r *RedisIndex) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// watchDoc читает текущие токены документа и выполняет fn под WATCH,
// повторяя при конкурентном изменении того же документа
func (r *RedisIndex) watchDoc(ctx context.Context, id int64, fn func(tx *redis.Tx, old []string) error) error {
	key := r.docKey(id)
	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			old, err := tx.SMembers(ctx, key).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			return fn(tx, old)
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (r *RedisIndex) unlink(ctx context.Context, pipe redis.Pipeliner, id int64, tokens []string) {
	member := strconv.FormatInt(id, 10)
	for _, token := range tokens {
		pipe.ZRem(ctx, r.tokenKey(token), member)
	}
	pipe.Del(ctx, r.docKey(id))
}
