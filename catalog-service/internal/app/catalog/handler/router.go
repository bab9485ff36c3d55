package handler

import (
	"time"

	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes настраивает все маршруты Catalog Service с использованием Gin
// Чтение каталога публичное, изменения требуют JWT с ролью manager или admin
func SetupRoutes(catalogHandler *CatalogHandler, healthHandler *HealthHandler, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware(serviceName))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           12 * time.Hour,
	}))

	// Health и метрики - публичные, без аутентификации
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	products := router.Group("/api/products")
	{
		products.GET("", catalogHandler.GetAllProducts)              // Список всех товаров
		products.GET("/search", catalogHandler.SearchProducts)       // Поиск по ключевому слову
		products.GET("/find", catalogHandler.FindProduct)            // Поиск по id или sku
		products.GET("/categories", catalogHandler.GetCategories)    // Категории (кеш Redis)
		products.GET("/load/history", catalogHandler.GetLoadHistory) // История загрузок фида
		products.GET("/:id", catalogHandler.GetProduct)              // Товар по ID
	}

	// POST, PUT, PATCH, DELETE только для manager и admin
	protected := products.Group("")
	protected.Use(authMiddleware.Authenticate(), authMiddleware.RequireRole(RoleManager, RoleAdmin))
	{
		protected.POST("", catalogHandler.CreateProduct)
		protected.PUT("/:id", catalogHandler.UpdateProduct)
		protected.PATCH("/:id", catalogHandler.PatchProduct)
		protected.DELETE("/:id", catalogHandler.DeleteProduct)
		protected.POST("/load", catalogHandler.LoadProducts)       // Загрузка внешнего фида
		protected.POST("/reindex", catalogHandler.ReindexProducts) // Перестроение поискового индекса
	}

	return router
}
