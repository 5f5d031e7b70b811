package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"adventure-server/internal/interfaces"
	"adventure-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Story length bounds. Every playthrough gets a random length in this range
// so two adventures in the same genre do not pace identically.
const (
	minTotalScenes = 20
	maxTotalScenes = 30
)

// StoryService starts new playthroughs.
type StoryService interface {
	CreateStory(ctx context.Context, userID uuid.UUID, genre string) (*models.Story, error)
}

type storyService struct {
	stories interfaces.StoryRepository
	users   interfaces.UserRepository
	logger  *zap.Logger
}

var _ StoryService = (*storyService)(nil)

// NewStoryService creates a StoryService.
func NewStoryService(stories interfaces.StoryRepository, users interfaces.UserRepository, logger *zap.Logger) StoryService {
	return &storyService{
		stories: stories,
		users:   users,
		logger:  logger.Named("StoryService"),
	}
}

// meterTypeForGenre maps a genre to the resource the story tracks.
func meterTypeForGenre(genre string) string {
	switch strings.ToLower(genre) {
	case "romance":
		return "Trust"
	case "mystery":
		return "Reputation"
	default:
		// fantasy, adventure, horror, sci-fi and anything unrecognized
		return "Health"
	}
}

// CreateStory starts a new playthrough for the user.
func (s *storyService) CreateStory(ctx context.Context, userID uuid.UUID, genre string) (*models.Story, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, fmt.Errorf("%w: genre is required", models.ErrInvalidInput)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	story := &models.Story{
		UserID:      userID,
		Genre:       genre,
		TotalScenes: minTotalScenes + rand.Intn(maxTotalScenes-minTotalScenes+1),
		XMeter:      100,
		XMeterType:  meterTypeForGenre(genre),
	}

	if err := s.stories.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	s.logger.Info("Story started",
		zap.String("story_id", story.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("genre", genre),
		zap.Int("total_scenes", story.TotalScenes))
	return story, nil
}
