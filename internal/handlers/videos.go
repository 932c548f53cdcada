package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// VideoLister lists rendered videos, newest first.
type VideoLister interface {
	ListVideos(limit int) ([]types.VideoRecord, error)
}

const (
	defaultVideoLimit = 50
	maxVideoLimit     = 500
)

// VideosHandler lists rendered videos
type VideosHandler struct {
	videos VideoLister
}

// NewVideosHandler creates a new videos handler
func NewVideosHandler(videos VideoLister) *VideosHandler {
	return &VideosHandler{videos: videos}
}

// Handle processes GET /videos?limit=N
func (h *VideosHandler) Handle(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultVideoLimit)
	if limit < 1 || limit > maxVideoLimit {
		limit = defaultVideoLimit
	}
	videos, err := h.videos.ListVideos(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if videos == nil {
		videos = []types.VideoRecord{}
	}
	return c.JSON(videos)
}
