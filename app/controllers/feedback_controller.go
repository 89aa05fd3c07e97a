package controllers

import (
	"github.com/gofiber/fiber/v2"

	"speeddating/app/middlewares"
	"speeddating/app/models"
	"speeddating/app/services"
)

// FeedbackController handles post-session feedback requests
type FeedbackController struct {
	feedback *services.FeedbackService
}

// NewFeedbackController creates a new feedback controller instance
func NewFeedbackController(feedback *services.FeedbackService) *FeedbackController {
	return &FeedbackController{feedback: feedback}
}

// Submit records the caller's rating of one partner
func (c *FeedbackController) Submit(ctx *fiber.Ctx) error {
	var req models.SubmitFeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request format")
	}

	feedback, err := c.feedback.SubmitFeedback(ctx.UserContext(), middlewares.UserID(ctx), ctx.Params("id"), req)
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusCreated, feedback)
}

// Get returns what the caller submitted for the session
func (c *FeedbackController) Get(ctx *fiber.Ctx) error {
	summary, err := c.feedback.GetFeedbackForSessionByUser(ctx.UserContext(), middlewares.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, summary)
}
