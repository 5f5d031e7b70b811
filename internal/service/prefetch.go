package service

import (
	"context"
	"fmt"

	"adventure-server/internal/models"
	"adventure-server/internal/taskmanager"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskSubmitter is the slice of the task manager the coordinator needs.
type TaskSubmitter interface {
	Submit(ctx context.Context, name string, fn taskmanager.TaskFunc) (uuid.UUID, error)
}

// PrefetchCoordinator pre-builds both continuations of a scene so the next
// request hits the cache regardless of which choice the player makes.
type PrefetchCoordinator struct {
	resolver SceneResolver
	tasks    TaskSubmitter
	logger   *zap.Logger
}

// NewPrefetchCoordinator creates a PrefetchCoordinator.
func NewPrefetchCoordinator(resolver SceneResolver, tasks TaskSubmitter, logger *zap.Logger) *PrefetchCoordinator {
	return &PrefetchCoordinator{
		resolver: resolver,
		tasks:    tasks,
		logger:   logger.Named("Prefetch"),
	}
}

// Prefetch submits two independent background builds for scene n+1: the
// main path and the wrong-path detour. It returns immediately; branch
// failures are logged, never propagated, and one branch failing does not
// affect the other. Tasks run on detached contexts, so the triggering
// request's cancellation does not kill them.
func (p *PrefetchCoordinator) Prefetch(ctx context.Context, storyID uuid.UUID, sceneNumber int) {
	next := sceneNumber + 1

	for _, wrongPath := range []bool{false, true} {
		wrongPath := wrongPath
		sceneKey := models.SceneKey(next, wrongPath)
		name := fmt.Sprintf("prefetch %s %s", storyID, sceneKey)

		_, err := p.tasks.Submit(ctx, name, func(taskCtx context.Context) error {
			_, err := p.resolver.ResolveScene(taskCtx, ResolveParams{
				StoryID:     storyID,
				SceneNumber: next,
				WrongPath:   wrongPath,
				Prefetch:    true,
			})
			if err != nil {
				prefetchFailures.Inc()
				return fmt.Errorf("prefetch of %s failed: %w", sceneKey, err)
			}
			return nil
		})
		if err != nil {
			prefetchFailures.Inc()
			p.logger.Warn("Failed to submit prefetch task",
				zap.String("story_id", storyID.String()),
				zap.String("scene_key", sceneKey),
				zap.Error(err))
			continue
		}
		prefetchSubmitted.Inc()
	}
}
