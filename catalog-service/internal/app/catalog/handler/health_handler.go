package handler

import (
	"context"
	"net/http"
	"time"

	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	serviceName  = "catalog"
	serviceTitle = "catalog-service"
)

// Pinger - внешняя зависимость с проверкой доступности (поисковый индекс)
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler проверяет зависимости сервиса. Nil зависимость не проверяется
type HealthHandler struct {
	db          *gorm.DB
	redisClient *redis.Client
	searchIndex Pinger
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, searchIndex Pinger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
		searchIndex: searchIndex,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	overallStatus := "healthy"

	for name, err := range h.check(ctx) {
		if err != nil {
			checks[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
			logger.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			continue
		}
		checks[name] = "healthy"
	}

	status := http.StatusOK
	if overallStatus != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, HealthResponse{
		Status:    overallStatus,
		Service:   serviceTitle,
		Checks:    checks,
		Timestamp: time.Now(),
	})
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for name, err := range h.check(ctx) {
		if err != nil {
			c.String(http.StatusServiceUnavailable, name+" not ready")
			return
		}
	}

	c.String(http.StatusOK, "ready")
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.String(http.StatusOK, "alive")
}

func (h *HealthHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", h.HealthCheck)
	router.GET("/health/readiness", h.Readiness)
	router.GET("/health/liveness", h.Liveness)
}

func (h *HealthHandler) check(ctx context.Context) map[string]error {
	results := make(map[string]error)
	if h.db != nil {
		results["database"] = h.checkDatabase(ctx)
	}
	if h.redisClient != nil {
		results["redis"] = h.redisClient.Ping(ctx).Err()
	}
	if h.searchIndex != nil {
		results["search"] = h.searchIndex.Ping(ctx)
	}
	return results
}

func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	metrics.RecordDbPoolStats(serviceName, sqlDB.Stats())
	return sqlDB.PingContext(ctx)
}
