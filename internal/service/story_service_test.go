package service

import (
	"context"
	"testing"

	"adventure-server/internal/models"
	"adventure-server/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateStory(t *testing.T) {
	ctx := context.Background()

	newFixture := func(t *testing.T) (*mocks.MockStoryRepository, *mocks.MockUserRepository, StoryService, uuid.UUID) {
		t.Helper()
		stories := new(mocks.MockStoryRepository)
		users := new(mocks.MockUserRepository)
		userID := uuid.New()
		users.On("GetByID", mock.Anything, userID).Return(&models.User{ID: userID, Credits: 100}, nil).Maybe()
		return stories, users, NewStoryService(stories, users, zap.NewNop()), userID
	}

	t.Run("Creates a bounded-length story", func(t *testing.T) {
		stories, _, svc, userID := newFixture(t)
		stories.On("Create", mock.Anything, mock.AnythingOfType("*models.Story")).Return(nil)

		for i := 0; i < 25; i++ {
			story, err := svc.CreateStory(ctx, userID, "fantasy")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, story.TotalScenes, minTotalScenes)
			assert.LessOrEqual(t, story.TotalScenes, maxTotalScenes)
			assert.Equal(t, 100, story.XMeter)
			assert.Equal(t, 0, story.CurrentScene)
			assert.False(t, story.IsCompleted)
		}
	})

	t.Run("Meter type follows genre", func(t *testing.T) {
		stories, _, svc, userID := newFixture(t)
		stories.On("Create", mock.Anything, mock.Anything).Return(nil)

		for genre, want := range map[string]string{
			"fantasy":   "Health",
			"adventure": "Health",
			"horror":    "Health",
			"sci-fi":    "Health",
			"Romance":   "Trust",
			"mystery":   "Reputation",
			"western":   "Health",
		} {
			story, err := svc.CreateStory(ctx, userID, genre)
			require.NoError(t, err)
			assert.Equal(t, want, story.XMeterType, "genre %q", genre)
		}
	})

	t.Run("Empty genre is invalid", func(t *testing.T) {
		_, _, svc, userID := newFixture(t)
		_, err := svc.CreateStory(ctx, userID, "   ")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("Unknown user", func(t *testing.T) {
		stories, users, svc, _ := newFixture(t)
		missing := uuid.New()
		users.On("GetByID", mock.Anything, missing).Return(nil, models.ErrUserNotFound)

		_, err := svc.CreateStory(ctx, missing, "fantasy")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
		stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
