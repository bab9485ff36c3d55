package service

import (
	"context"
	"time"

	"productcatalog/pkg/logger"

	"github.com/cenkalti/backoff/v5"
)

// maxBackoffCap ограничивает задержку, если MaxBackoff не задан
const maxBackoffCap = time.Minute

// RetryPolicy - явная политика повторов обращения к фиду
type RetryPolicy struct {
	MaxAttempts    int           // Не меньше 1
	InitialBackoff time.Duration // Задержка после первой неудачной попытки
	MaxBackoff     time.Duration // Верхняя граница задержки, 0 - maxBackoffCap
	Multiplier     float64       // 1 - фиксированная задержка, >1 - экспоненциальная
	AttemptTimeout time.Duration // Ограничение одной попытки, 0 - без ограничения
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) maxBackoff() time.Duration {
	if p.MaxBackoff <= 0 {
		return maxBackoffCap
	}
	return p.MaxBackoff
}

// newBackOff строит расписание задержек без случайного разброса
func (p RetryPolicy) newBackOff() backoff.BackOff {
	if p.InitialBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}

	initial := min(p.InitialBackoff, p.maxBackoff())
	if p.Multiplier <= 1 {
		return backoff.NewConstantBackOff(initial)
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.maxBackoff(),
	}
	b.Reset()
	return b
}

// Backoff возвращает задержку после неудачной попытки с номером attempt (с 1)
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	b := p.newBackOff()
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Do выполняет fn до успеха, неповторяемой ошибки или исчерпания попыток.
// Возвращает число выполненных попыток и последнюю ошибку fn
func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) (int, error) {
	var (
		attempts int
		lastErr  error
	)

	operation := func() (struct{}, error) {
		attempts++
		lastErr = p.attempt(ctx, fn)
		if lastErr == nil {
			return struct{}{}, nil
		}
		if !retryable(lastErr) || ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(lastErr)
		}
		return struct{}{}, lastErr
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(uint(p.maxAttempts())),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug().Err(err).Int("attempt", attempts).Dur("backoff", next).Msg("Retrying after failed attempt")
		}),
	)
	if err != nil {
		return attempts, lastErr
	}
	return attempts, nil
}

func (p RetryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}
