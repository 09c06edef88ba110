package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"neuropay/internal/cache"
	"neuropay/internal/database"
	"neuropay/internal/dto"
)

type HealthHandler struct {
	cache *cache.ProfileCache
}

func NewHealthHandler(cache *cache.ProfileCache) *HealthHandler {
	return &HealthHandler{cache: cache}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	cacheStatus := "ok"
	if err := h.cache.Ping(c.UserContext()); err != nil {
		cacheStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Cache:     cacheStatus,
	})
}
