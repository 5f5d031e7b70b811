package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adventure-server/internal/interfaces"
	"adventure-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgSceneRepository implements SceneRepository.
var _ interfaces.SceneRepository = (*pgSceneRepository)(nil)

type pgSceneRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgSceneRepository creates a new PostgreSQL-backed SceneRepository.
func NewPgSceneRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.SceneRepository {
	return &pgSceneRepository{
		db:     db,
		logger: logger.Named("PgSceneRepo"),
	}
}

const createSceneQuery = `
INSERT INTO scenes (id, story_id, scene_number, scene_key, text, image_prompt, image_url, options, is_correct_path, is_game_over, is_main_path, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const findSceneByStoryAndKeyQuery = `
SELECT id, story_id, scene_number, scene_key, text, image_prompt, image_url, options, is_correct_path, is_game_over, is_main_path, created_at
FROM scenes
WHERE story_id = $1 AND scene_key = $2`

const mainPathImagePromptsQuery = `
SELECT image_prompt
FROM scenes
WHERE story_id = $1 AND is_main_path = TRUE
ORDER BY scene_number ASC`

// Create inserts a new scene record.
func (r *pgSceneRepository) Create(ctx context.Context, scene *models.Scene) error {
	if scene.ID == uuid.Nil {
		scene.ID = uuid.New()
	}
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, createSceneQuery,
		scene.ID,
		scene.StoryID,
		scene.SceneNumber,
		scene.SceneKey,
		scene.Text,
		scene.ImagePrompt,
		scene.ImageURL,
		scene.Options,
		scene.IsCorrectPath,
		scene.IsGameOver,
		scene.IsMainPath,
		scene.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create scene",
			zap.Error(err),
			zap.String("storyID", scene.StoryID.String()),
			zap.String("sceneKey", scene.SceneKey),
		)
		return fmt.Errorf("failed to create scene %s: %w", scene.SceneKey, err)
	}
	r.logger.Info("Scene created", zap.String("storyID", scene.StoryID.String()), zap.String("sceneKey", scene.SceneKey))
	return nil
}

// FindByStoryAndKey retrieves a scene by its cache identity (storyID, sceneKey).
func (r *pgSceneRepository) FindByStoryAndKey(ctx context.Context, storyID uuid.UUID, sceneKey string) (*models.Scene, error) {
	scene := &models.Scene{}
	logFields := []zap.Field{
		zap.String("storyID", storyID.String()),
		zap.String("sceneKey", sceneKey),
	}
	err := r.db.QueryRow(ctx, findSceneByStoryAndKeyQuery, storyID, sceneKey).Scan(
		&scene.ID,
		&scene.StoryID,
		&scene.SceneNumber,
		&scene.SceneKey,
		&scene.Text,
		&scene.ImagePrompt,
		&scene.ImageURL,
		&scene.Options,
		&scene.IsCorrectPath,
		&scene.IsGameOver,
		&scene.IsMainPath,
		&scene.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Scene not found by key", logFields...)
			return nil, models.ErrSceneNotFound
		}
		r.logger.Error("Failed to find scene by key", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to find scene %s: %w", sceneKey, err)
	}
	r.logger.Debug("Scene found by key", logFields...)
	return scene, nil
}

// FirstMainPathImagePrompt returns the image prompt of the earliest main-path
// scene, used for character clothing continuity across the story.
func (r *pgSceneRepository) FirstMainPathImagePrompt(ctx context.Context, storyID uuid.UUID) (string, error) {
	var prompts []string
	err := pgxscan.Select(ctx, r.db, &prompts, mainPathImagePromptsQuery, storyID)
	if err != nil {
		r.logger.Error("Failed to list main path image prompts", zap.Error(err), zap.String("storyID", storyID.String()))
		return "", fmt.Errorf("failed to list main path prompts for story %s: %w", storyID, err)
	}
	if len(prompts) == 0 {
		return "", nil
	}
	return prompts[0], nil
}
