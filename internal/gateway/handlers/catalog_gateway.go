package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"mesa-system/internal/database/models"
	"mesa-system/internal/engine"
)

type CatalogHTTPHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	ledger *engine.Ledger
}

func NewCatalogHTTPHandler(db *gorm.DB, redisClient *redis.Client, ledger *engine.Ledger) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{
		db:     db,
		redis:  redisClient,
		ledger: ledger,
	}
}

// ListItems serves the menu, cache-aside with the shared catalog key so
// order confirmation can invalidate it on stock changes.
func (h *CatalogHTTPHandler) ListItems(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if h.redis != nil {
		val, err := h.redis.Get(ctx, engine.CatalogItemsCacheKey).Result()
		if err == nil {
			var cached []models.Item
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				c.JSON(http.StatusOK, successResponse("Items retrieved successfully", cached))
				return
			}
		} else if err != redis.Nil {
			log.Printf("Redis error on GET: %v. Falling back to DB.", err)
		}
	}

	var items []models.Item
	if err := h.db.WithContext(ctx).
		Preload("Category").
		Where("is_available = ?", true).
		Order("sort_order asc, item_name asc").
		Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list items"))
		return
	}

	if h.redis != nil {
		if jsonData, err := json.Marshal(items); err == nil {
			if err := h.redis.Set(ctx, engine.CatalogItemsCacheKey, jsonData, engine.CacheTTLMedium).Err(); err != nil {
				log.Printf("Failed to set cache for key %s: %v", engine.CatalogItemsCacheKey, err)
			}
		}
	}

	c.JSON(http.StatusOK, successResponse("Items retrieved successfully", items))
}

func (h *CatalogHTTPHandler) GetItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid item ID"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var item models.Item
	if err := h.db.WithContext(ctx).
		Preload("Category").
		First(&item, int32(itemID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, errorResponse("Item not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to get item"))
		return
	}

	var sizes []models.ItemSize
	if err := h.db.WithContext(ctx).
		Preload("Size").
		Where("item_id = ?", item.ID).
		Find(&sizes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to get item sizes"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Item retrieved successfully", gin.H{
		"item":      item,
		"sizes":     sizes,
		"low_stock": engine.IsLowStock(item),
	}))
}

func (h *CatalogHTTPHandler) ListCategories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var categories []models.Category
	if err := h.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("category_name asc").
		Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list categories"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

// ListTables is never cached: the effective status is derived from live
// order rows and a cached copy would go stale on every confirmation.
func (h *CatalogHTTPHandler) ListTables(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables, err := h.ledger.Tables().ListTables(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list tables"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Tables retrieved successfully", tables))
}

func (h *CatalogHTTPHandler) ListLowStock(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if h.redis != nil {
		val, err := h.redis.Get(ctx, engine.LowStockCacheKey).Result()
		if err == nil {
			var cached []models.Item
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				c.JSON(http.StatusOK, successResponse("Low stock items retrieved successfully", cached))
				return
			}
		} else if err != redis.Nil {
			log.Printf("Redis error on GET: %v. Falling back to DB.", err)
		}
	}

	items, err := h.ledger.Stock().ListLowStock(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list low stock items"))
		return
	}

	if h.redis != nil {
		if jsonData, err := json.Marshal(items); err == nil {
			if err := h.redis.Set(ctx, engine.LowStockCacheKey, jsonData, engine.CacheTTLShort).Err(); err != nil {
				log.Printf("Failed to set cache for key %s: %v", engine.LowStockCacheKey, err)
			}
		}
	}

	c.JSON(http.StatusOK, successResponse("Low stock items retrieved successfully", items))
}

func (h *CatalogHTTPHandler) ListPaymentMethods(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var methods []models.PaymentMethod
	if err := h.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("method_name asc").
		Find(&methods).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list payment methods"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Payment methods retrieved successfully", methods))
}
