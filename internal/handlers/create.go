package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// TaskService queues video tasks and reports their state.
type TaskService interface {
	Submit(ctx context.Context, sourceType string, post types.Post) (string, error)
	Status(id string) (*types.TaskRecord, error)
}

// CreateHandler queues a video task for a posted story
type CreateHandler struct {
	tasks  TaskService
	logger zerolog.Logger
}

// NewCreateHandler creates a new create handler
func NewCreateHandler(tasks TaskService, logger zerolog.Logger) *CreateHandler {
	return &CreateHandler{
		tasks:  tasks,
		logger: logger,
	}
}

// CreateRequest represents the request body
type CreateRequest struct {
	PostData *types.Post `json:"post_data"`
}

// Handle processes POST /create
func (h *CreateHandler) Handle(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}
	if req.PostData == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing 'post_data' in request body",
			"code":  "ERR_NO_POST",
		})
	}

	post := *req.PostData
	post.Title = strings.TrimSpace(post.Title)
	if post.Title == "" && strings.TrimSpace(post.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_data needs a title or text",
			"code":  "ERR_EMPTY_POST",
		})
	}

	taskID, err := h.tasks.Submit(c.UserContext(), types.SourceAPI, post)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to queue task")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to queue task",
			"code":  "ERR_QUEUE_FAILED",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"task_id": taskID})
}
