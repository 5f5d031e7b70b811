package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"adventure-server/internal/models"
	"adventure-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveScene(ctx context.Context, params service.ResolveParams) (*models.SceneResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SceneResult), args.Error(1)
}

type mockStoryService struct {
	mock.Mock
}

func (m *mockStoryService) CreateStory(ctx context.Context, userID uuid.UUID, genre string) (*models.Story, error) {
	args := m.Called(ctx, userID, genre)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

type recordingPrefetcher struct {
	calls []int
}

func (p *recordingPrefetcher) Prefetch(ctx context.Context, storyID uuid.UUID, sceneNumber int) {
	p.calls = append(p.calls, sceneNumber)
}

type fixture struct {
	resolver   *mockResolver
	stories    *mockStoryService
	prefetcher *recordingPrefetcher
	router     *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		resolver:   new(mockResolver),
		stories:    new(mockStoryService),
		prefetcher: &recordingPrefetcher{},
	}
	f.router = gin.New()
	New(f.resolver, f.stories, f.prefetcher, zap.NewNop()).RegisterRoutes(f.router)
	return f
}

func (f *fixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestResolveSceneEndpoint(t *testing.T) {
	storyID := uuid.New()

	t.Run("Returns the scene and triggers prefetch", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.On("ResolveScene", mock.Anything, service.ResolveParams{
			StoryID:        storyID,
			SceneNumber:    5,
			PreviousChoice: "Open the gate",
		}).Return(&models.SceneResult{
			SceneKey:    "a_5",
			SceneNumber: 5,
			Text:        []string{"p1"},
			Options:     []string{"x", "y"},
		}, nil)

		w := f.post(t, "/api/scene", gin.H{
			"storyId":        storyID.String(),
			"sceneNumber":    5,
			"previousChoice": "Open the gate",
		})

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "a_5", body["sceneKey"])
		assert.Equal(t, []int{5}, f.prefetcher.calls)
	})

	t.Run("No prefetch after game over", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.On("ResolveScene", mock.Anything, mock.Anything).
			Return(&models.SceneResult{SceneKey: "a_21", IsGameOver: true}, nil)

		w := f.post(t, "/api/scene", gin.H{"storyId": storyID.String(), "sceneNumber": 21})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, f.prefetcher.calls)
	})

	t.Run("No prefetch for wrong-path requests", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.On("ResolveScene", mock.Anything, mock.Anything).
			Return(&models.SceneResult{SceneKey: "b_5"}, nil)

		w := f.post(t, "/api/scene", gin.H{"storyId": storyID.String(), "sceneNumber": 5, "isWrongPath": true})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, f.prefetcher.calls)
	})

	t.Run("Status mapping", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want int
		}{
			{"Story not found", models.ErrStoryNotFound, http.StatusNotFound},
			{"User not found", models.ErrUserNotFound, http.StatusNotFound},
			{"Insufficient credits", models.ErrInsufficientCredits, http.StatusPaymentRequired},
			{"Completed story", models.ErrStoryCompleted, http.StatusConflict},
			{"Invalid input", models.ErrInvalidInput, http.StatusBadRequest},
			{"Persistence failure", errors.New("db down"), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				f.resolver.On("ResolveScene", mock.Anything, mock.Anything).Return(nil, tt.err)

				w := f.post(t, "/api/scene", gin.H{"storyId": storyID.String(), "sceneNumber": 5})
				assert.Equal(t, tt.want, w.Code)

				var body APIError
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.NotContains(t, body.Message, "db down")
				assert.Empty(t, f.prefetcher.calls)
			})
		}
	})

	t.Run("Malformed body", func(t *testing.T) {
		f := newFixture(t)
		w := f.post(t, "/api/scene", gin.H{"storyId": "not-a-uuid", "sceneNumber": 5})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = f.post(t, "/api/scene", gin.H{"storyId": storyID.String()})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPrefetchEndpoint(t *testing.T) {
	t.Run("Acknowledges immediately", func(t *testing.T) {
		f := newFixture(t)
		storyID := uuid.New()

		w := f.post(t, "/api/scene/prefetch", gin.H{"storyId": storyID.String(), "sceneNumber": 5})
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, []int{5}, f.prefetcher.calls)
	})

	t.Run("Rejects missing story id", func(t *testing.T) {
		f := newFixture(t)
		w := f.post(t, "/api/scene/prefetch", gin.H{"sceneNumber": 5})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, f.prefetcher.calls)
	})
}

func TestCreateStoryEndpoint(t *testing.T) {
	t.Run("Creates a story", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		story := &models.Story{ID: uuid.New(), UserID: userID, Genre: "mystery", TotalScenes: 24, XMeterType: "Reputation"}
		f.stories.On("CreateStory", mock.Anything, userID, "mystery").Return(story, nil)

		w := f.post(t, "/api/story", gin.H{"userId": userID.String(), "genre": "mystery"})
		require.Equal(t, http.StatusCreated, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, story.ID.String(), body["storyId"])
		assert.Equal(t, float64(24), body["totalScenes"])
		assert.Equal(t, "Reputation", body["xMeterType"])
	})

	t.Run("Unknown user", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		f.stories.On("CreateStory", mock.Anything, userID, "mystery").Return(nil, models.ErrUserNotFound)

		w := f.post(t, "/api/story", gin.H{"userId": userID.String(), "genre": "mystery"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
