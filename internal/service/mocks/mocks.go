// Package mocks provides hand-written testify mocks for the service
// layer's collaborators.
package mocks

import (
	"context"

	"adventure-server/internal/interfaces"
	"adventure-server/internal/messaging"
	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository mocks interfaces.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

var _ interfaces.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateCredits(ctx context.Context, id uuid.UUID, credits int) error {
	args := m.Called(ctx, id, credits)
	return args.Error(0)
}

// MockStoryRepository mocks interfaces.StoryRepository.
type MockStoryRepository struct {
	mock.Mock
}

var _ interfaces.StoryRepository = (*MockStoryRepository)(nil)

func (m *MockStoryRepository) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *MockStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

// MockSceneRepository mocks interfaces.SceneRepository.
type MockSceneRepository struct {
	mock.Mock
}

var _ interfaces.SceneRepository = (*MockSceneRepository)(nil)

func (m *MockSceneRepository) Create(ctx context.Context, scene *models.Scene) error {
	args := m.Called(ctx, scene)
	return args.Error(0)
}

func (m *MockSceneRepository) FindByStoryAndKey(ctx context.Context, storyID uuid.UUID, sceneKey string) (*models.Scene, error) {
	args := m.Called(ctx, storyID, sceneKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scene), args.Error(1)
}

func (m *MockSceneRepository) FirstMainPathImagePrompt(ctx context.Context, storyID uuid.UUID) (string, error) {
	args := m.Called(ctx, storyID)
	return args.String(0), args.Error(1)
}

// MockSceneCache mocks interfaces.SceneCache.
type MockSceneCache struct {
	mock.Mock
}

var _ interfaces.SceneCache = (*MockSceneCache)(nil)

func (m *MockSceneCache) Get(ctx context.Context, storyID uuid.UUID, sceneKey string) (*models.Scene, error) {
	args := m.Called(ctx, storyID, sceneKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scene), args.Error(1)
}

func (m *MockSceneCache) Set(ctx context.Context, scene *models.Scene) error {
	args := m.Called(ctx, scene)
	return args.Error(0)
}

// MockNarrativeGenerator mocks interfaces.NarrativeGenerator.
type MockNarrativeGenerator struct {
	mock.Mock
}

var _ interfaces.NarrativeGenerator = (*MockNarrativeGenerator)(nil)

func (m *MockNarrativeGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

// MockImageGenerator mocks interfaces.ImageGenerator.
type MockImageGenerator struct {
	mock.Mock
}

var _ interfaces.ImageGenerator = (*MockImageGenerator)(nil)

func (m *MockImageGenerator) Generate(ctx context.Context, prompt, referenceImageURL string) string {
	args := m.Called(ctx, prompt, referenceImageURL)
	return args.String(0)
}

func (m *MockImageGenerator) PlaceholderURL() string {
	args := m.Called()
	return args.String(0)
}

// MockScenePublisher mocks messaging.ScenePublisher.
type MockScenePublisher struct {
	mock.Mock
}

var _ messaging.ScenePublisher = (*MockScenePublisher)(nil)

func (m *MockScenePublisher) PublishSceneReady(ctx context.Context, payload messaging.SceneReadyPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockScenePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
