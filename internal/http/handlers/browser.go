package handlers

import (
	"github.com/gofiber/fiber/v2"

	"goal-image-service/internal/infra/chrome"
)

// PoolStats reports the browser pool snapshot.
type PoolStats interface {
	Stats() chrome.Stats
}

// BrowserStats exposes capacity and lease counts of the browser pool.
func BrowserStats(pool PoolStats) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := pool.Stats()
		return c.JSON(fiber.Map{
			"state":          s.State,
			"capacity":       s.Capacity,
			"idle":           s.Idle,
			"in_use":         s.InUse,
			"unhealthy":      s.Unhealthy,
			"pool_size_conf": s.PoolSizeConf,
			"launches":       s.Launches,
		})
	}
}
