package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mesa-system/config"
	"mesa-system/internal/database"
	"mesa-system/internal/database/models"
	"mesa-system/internal/engine"
	"mesa-system/internal/gateway/handlers"
	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/gateway/ws"
	"mesa-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.MigrateUserDB(db); err != nil {
		log.Fatalf("Failed to migrate user tables: %v", err)
	}
	if err := database.MigrateCatalogDB(db); err != nil {
		log.Fatalf("Failed to migrate catalog tables: %v", err)
	}
	if err := database.MigrateOrderDB(db); err != nil {
		log.Fatalf("Failed to migrate order tables: %v", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)

	taxRate := decimal.NewFromFloat(cfg.Tax.Rate)
	ledger := engine.NewLedger(db, rdb, taxRate)
	kitchen := engine.NewKitchenCoordinator(db, rdb)

	hub := ws.NewHub(rdb)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	authHandler := handlers.NewAuthHTTPHandler(db, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	orderHandler := handlers.NewOrderHTTPHandler(ledger)
	kitchenHandler := handlers.NewKitchenHTTPHandler(kitchen)
	catalogHandler := handlers.NewCatalogHTTPHandler(db, rdb, ledger)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit())

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		orders := protected.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/lines", orderHandler.AddLine)
			orders.PUT("/:id/lines/:line_id", orderHandler.UpdateLine)
			orders.DELETE("/:id/lines/:line_id", orderHandler.RemoveLine)
			orders.PUT("/:id/discount", orderHandler.SetDiscount)
			orders.POST("/:id/confirm", orderHandler.ConfirmOrder)
			orders.POST("/:id/complete", orderHandler.CompleteOrder)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
			orders.POST("/:id/pay", orderHandler.MarkPaid)
		}

		kitchenGroup := protected.Group("/kitchen")
		kitchenGroup.Use(middleware.RequireRole(
			models.RoleKitchen, models.RoleResto, models.RoleRestoAdmin, models.RoleAdmin))
		{
			kitchenGroup.GET("/tickets", kitchenHandler.ListTickets)
			kitchenGroup.PUT("/orders/:id/lines/:line_id", kitchenHandler.AdvanceLine)
		}

		catalog := protected.Group("/catalog")
		{
			catalog.GET("/items", catalogHandler.ListItems)
			catalog.GET("/items/:id", catalogHandler.GetItem)
			catalog.GET("/categories", catalogHandler.ListCategories)
			catalog.GET("/tables", catalogHandler.ListTables)
			catalog.GET("/low-stock", catalogHandler.ListLowStock)
			catalog.GET("/payment-methods", catalogHandler.ListPaymentMethods)
		}
	}

	r.GET("/ws/events", hub.HandleWebSocket)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", healthCheckHandler(db, rdb))

	log.Printf("Starting server on %s", cfg.HTTP.Addr)
	if err := r.Run(cfg.HTTP.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheckHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		httpStatus := http.StatusOK

		components := gin.H{"database": "healthy", "redis": "healthy"}

		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			components["database"] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			components["redis"] = "unavailable"
			status = "degraded"
		}

		c.JSON(httpStatus, gin.H{
			"status":     status,
			"components": components,
			"timestamp":  time.Now(),
		})
	}
}
