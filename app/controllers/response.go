package controllers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"speeddating/app/models"
)

// statusForCode maps error codes to HTTP statuses
var statusForCode = map[string]int{
	models.ErrorCodeValidation:        fiber.StatusBadRequest,
	models.ErrorCodeUnauthorized:      fiber.StatusUnauthorized,
	models.ErrorCodeForbidden:         fiber.StatusForbidden,
	models.ErrorCodeNotFound:          fiber.StatusNotFound,
	models.ErrorCodeInvalidState:      fiber.StatusConflict,
	models.ErrorCodeCapacityReached:   fiber.StatusConflict,
	models.ErrorCodeDuplicateFeedback: fiber.StatusConflict,
}

func success(ctx *fiber.Ctx, status int, data interface{}) error {
	return ctx.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

func badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"code":    models.ErrorCodeValidation,
		"message": message,
	})
}

// failure writes the error envelope for err, hiding internal error details
func failure(ctx *fiber.Ctx, err error) error {
	code := models.ErrorCode(err)
	status, ok := statusForCode[code]
	if !ok {
		slog.Error("request failed", "method", ctx.Method(), "path", ctx.Path(), "error", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"code":    models.ErrorCodeInternal,
			"message": "Internal server error",
		})
	}
	return ctx.Status(status).JSON(fiber.Map{
		"status":  "error",
		"code":    code,
		"message": err.Error(),
	})
}
