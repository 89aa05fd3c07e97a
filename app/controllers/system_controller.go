package controllers

import (
	"github.com/gofiber/fiber/v2"

	"speeddating/app/services"
)

// SystemController exposes counters and a manual scheduler trigger
type SystemController struct {
	stats services.StatsRecorder
	cron  *services.CronService
}

// NewSystemController creates a new system controller instance
func NewSystemController(stats services.StatsRecorder, cron *services.CronService) *SystemController {
	return &SystemController{stats: stats, cron: cron}
}

// Stats returns the operational counters
func (c *SystemController) Stats(ctx *fiber.Ctx) error {
	snapshot, err := c.stats.Snapshot(ctx.UserContext())
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, snapshot)
}

// RunScheduler asks a running scheduler loop for an immediate pass. Without a loop it
// runs one pass synchronously and reports what it did.
func (c *SystemController) RunScheduler(ctx *fiber.Ctx) error {
	if c.cron.IsRunning() {
		c.cron.RequestRun()
		return success(ctx, fiber.StatusAccepted, fiber.Map{"requested": true})
	}

	result, err := c.cron.RunOnce(ctx.UserContext())
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, result)
}
