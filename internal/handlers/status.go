package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/storage"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// Client-facing task states.
const (
	StatePending = "PENDING"
	StateSuccess = "SUCCESS"
	StateFailure = "FAILURE"
)

// StatusHandler reports task progress over HTTP and WebSocket
type StatusHandler struct {
	tasks        TaskService
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(tasks TaskService, pollInterval time.Duration, logger zerolog.Logger) *StatusHandler {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &StatusHandler{
		tasks:        tasks,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// statusBody maps a task to its response body and reports whether the
// task reached a terminal state.
func statusBody(task *types.TaskRecord) (fiber.Map, bool) {
	switch task.Status {
	case types.StatusCompleted:
		return fiber.Map{"state": StateSuccess, "result": task.Result}, true
	case types.StatusFailed:
		return fiber.Map{"state": StateFailure, "result": task.Error}, true
	default:
		return fiber.Map{"state": StatePending, "status": "Pending..."}, false
	}
}

// Handle processes GET /status/:id
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	task, err := h.tasks.Status(c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	body, done := statusBody(task)
	if !done {
		return c.Status(fiber.StatusAccepted).JSON(body)
	}
	return c.JSON(body)
}

// HandleWS pushes the task state on every change until it is terminal
func (h *StatusHandler) HandleWS(c *websocket.Conn) {
	defer c.Close()

	id := c.Params("id")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reading detects the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err := h.watch(ctx, id, func(body fiber.Map) error {
		return c.WriteJSON(body)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug().Err(err).Str("task_id", id).Msg("status stream ended")
		c.WriteJSON(fiber.Map{"error": err.Error()})
	}
}

// watch polls the task and calls send whenever its state changes. It
// returns nil once a terminal state was sent.
func (h *StatusHandler) watch(ctx context.Context, id string, send func(fiber.Map) error) error {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	last := ""
	for {
		task, err := h.tasks.Status(id)
		if err != nil {
			return err
		}
		if task.Status != last {
			last = task.Status
			body, done := statusBody(task)
			if err := send(body); err != nil {
				return err
			}
			if done {
				return nil
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
