package service

import (
	"context"
	"errors"
	"testing"

	"adventure-server/internal/models"
	"adventure-server/internal/taskmanager"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveScene(ctx context.Context, params ResolveParams) (*models.SceneResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SceneResult), args.Error(1)
}

// syncSubmitter runs submitted tasks inline so assertions see their effects.
type syncSubmitter struct {
	submitted []string
	errs      []error
	rejectAll bool
}

func (s *syncSubmitter) Submit(ctx context.Context, name string, fn taskmanager.TaskFunc) (uuid.UUID, error) {
	if s.rejectAll {
		return uuid.UUID{}, taskmanager.ErrTooManyTasks
	}
	s.submitted = append(s.submitted, name)
	s.errs = append(s.errs, fn(context.Background()))
	return uuid.New(), nil
}

func TestPrefetch(t *testing.T) {
	storyID := uuid.New()

	t.Run("Builds both continuations as prefetches", func(t *testing.T) {
		resolver := new(mockResolver)
		tasks := &syncSubmitter{}
		coordinator := NewPrefetchCoordinator(resolver, tasks, zap.NewNop())

		resolver.On("ResolveScene", mock.Anything, ResolveParams{
			StoryID: storyID, SceneNumber: 6, WrongPath: false, Prefetch: true,
		}).Return(&models.SceneResult{SceneKey: "a_6"}, nil)
		resolver.On("ResolveScene", mock.Anything, ResolveParams{
			StoryID: storyID, SceneNumber: 6, WrongPath: true, Prefetch: true,
		}).Return(&models.SceneResult{SceneKey: "b_6"}, nil)

		coordinator.Prefetch(context.Background(), storyID, 5)

		assert.Len(t, tasks.submitted, 2)
		resolver.AssertExpectations(t)
	})

	t.Run("One branch failing does not affect the other", func(t *testing.T) {
		resolver := new(mockResolver)
		tasks := &syncSubmitter{}
		coordinator := NewPrefetchCoordinator(resolver, tasks, zap.NewNop())

		resolver.On("ResolveScene", mock.Anything, mock.MatchedBy(func(p ResolveParams) bool {
			return !p.WrongPath
		})).Return(nil, errors.New("model down"))
		resolver.On("ResolveScene", mock.Anything, mock.MatchedBy(func(p ResolveParams) bool {
			return p.WrongPath
		})).Return(&models.SceneResult{SceneKey: "b_6"}, nil)

		coordinator.Prefetch(context.Background(), storyID, 5)

		assert.Len(t, tasks.submitted, 2)
		assert.Error(t, tasks.errs[0])
		assert.NoError(t, tasks.errs[1])
	})

	t.Run("Submission failure is absorbed", func(t *testing.T) {
		resolver := new(mockResolver)
		tasks := &syncSubmitter{rejectAll: true}
		coordinator := NewPrefetchCoordinator(resolver, tasks, zap.NewNop())

		coordinator.Prefetch(context.Background(), storyID, 5)

		resolver.AssertNotCalled(t, "ResolveScene", mock.Anything, mock.Anything)
	})
}
