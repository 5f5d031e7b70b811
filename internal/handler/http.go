// Package handler exposes the gameplay API over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"

	"adventure-server/internal/models"
	"adventure-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIError is the JSON error body for all endpoints.
type APIError struct {
	Message string `json:"message"`
}

// Prefetcher triggers speculative scene builds.
type Prefetcher interface {
	Prefetch(ctx context.Context, storyID uuid.UUID, sceneNumber int)
}

// Handler wires the gameplay services into gin routes.
type Handler struct {
	resolver   service.SceneResolver
	stories    service.StoryService
	prefetcher Prefetcher
	logger     *zap.Logger
}

// New creates the HTTP handler.
func New(resolver service.SceneResolver, stories service.StoryService, prefetcher Prefetcher, logger *zap.Logger) *Handler {
	return &Handler{
		resolver:   resolver,
		stories:    stories,
		prefetcher: prefetcher,
		logger:     logger.Named("HTTP"),
	}
}

// RegisterRoutes attaches all endpoints to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	api := router.Group("/api")
	{
		api.POST("/story", h.createStory)
		api.POST("/scene", h.resolveScene)
		api.POST("/scene/prefetch", h.prefetchScene)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createStoryRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Genre  string `json:"genre" binding:"required"`
}

func (h *Handler) createStory(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid user id"})
		return
	}

	story, err := h.stories.CreateStory(c.Request.Context(), userID, req.Genre)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"storyId":     story.ID,
		"totalScenes": story.TotalScenes,
		"xMeterType":  story.XMeterType,
	})
}

type resolveSceneRequest struct {
	StoryID        string `json:"storyId" binding:"required,uuid"`
	SceneNumber    int    `json:"sceneNumber" binding:"required,min=1"`
	IsWrongPath    bool   `json:"isWrongPath"`
	PreviousChoice string `json:"previousChoice"`
}

func (h *Handler) resolveScene(c *gin.Context) {
	var req resolveSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}
	storyID, err := uuid.Parse(req.StoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid story id"})
		return
	}

	result, err := h.resolver.ResolveScene(c.Request.Context(), service.ResolveParams{
		StoryID:        storyID,
		SceneNumber:    req.SceneNumber,
		WrongPath:      req.IsWrongPath,
		PreviousChoice: req.PreviousChoice,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Warm both continuations so the player's next request hits the cache.
	if !req.IsWrongPath && !result.IsGameOver {
		h.prefetcher.Prefetch(c.Request.Context(), storyID, req.SceneNumber)
	}

	c.JSON(http.StatusOK, result)
}

type prefetchRequest struct {
	StoryID     string `json:"storyId" binding:"required,uuid"`
	SceneNumber int    `json:"sceneNumber" binding:"required,min=1"`
}

func (h *Handler) prefetchScene(c *gin.Context) {
	var req prefetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}
	storyID, err := uuid.Parse(req.StoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid story id"})
		return
	}

	h.prefetcher.Prefetch(c.Request.Context(), storyID, req.SceneNumber)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// respondError maps domain errors to HTTP statuses. Raw upstream errors are
// never exposed to the player.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrSceneNotFound),
		errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, APIError{Message: "not found"})
	case errors.Is(err, models.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, APIError{Message: "insufficient credits"})
	case errors.Is(err, models.ErrStoryCompleted):
		c.JSON(http.StatusConflict, APIError{Message: "story already completed"})
	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request"})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "something went wrong, try again"})
	}
}
