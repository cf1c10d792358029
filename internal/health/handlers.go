package health

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handlers struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

type depStatus struct {
	Status string      `json:"status"`
	PingMs interface{} `json:"pingMs"`
}

// GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	deps := map[string]depStatus{}
	healthy := true

	if h.DB != nil {
		start := time.Now()
		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			deps["database"] = depStatus{Status: "disconnected", PingMs: nil}
			healthy = false
		} else {
			deps["database"] = depStatus{Status: "connected", PingMs: time.Since(start).Milliseconds()}
		}
	} else {
		deps["database"] = depStatus{Status: "disconnected", PingMs: nil}
		healthy = false
	}

	if h.Rdb != nil {
		start := time.Now()
		if err := h.Rdb.Ping(c.Context()).Err(); err != nil {
			deps["redis"] = depStatus{Status: "disconnected", PingMs: nil}
		} else {
			deps["redis"] = depStatus{Status: "connected", PingMs: time.Since(start).Milliseconds()}
		}
	} else {
		// Redis is optional (feed cache only); absence does not degrade health.
		deps["redis"] = depStatus{Status: "not_configured", PingMs: nil}
	}

	status := "ok"
	if !healthy {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":       status,
		"dependencies": deps,
	})
}
