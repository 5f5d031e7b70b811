package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adventure-server/internal/interfaces"
	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgStoryRepository implements StoryRepository.
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgStoryRepository creates a new PostgreSQL-backed StoryRepository.
func NewPgStoryRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

const createStoryQuery = `
INSERT INTO stories (id, user_id, genre, total_scenes, current_scene, x_meter, x_meter_type, is_completed, is_victory, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

const getStoryByIDQuery = `
SELECT id, user_id, genre, total_scenes, current_scene, x_meter, x_meter_type, is_completed, is_victory, created_at, updated_at
FROM stories
WHERE id = $1`

// Create inserts a new story record.
func (r *pgStoryRepository) Create(ctx context.Context, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, createStoryQuery,
		story.ID,
		story.UserID,
		story.Genre,
		story.TotalScenes,
		story.CurrentScene,
		story.XMeter,
		story.XMeterType,
		story.IsCompleted,
		story.IsVictory,
		story.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", zap.Error(err), zap.String("userID", story.UserID.String()))
		return fmt.Errorf("failed to create story: %w", err)
	}
	r.logger.Info("Story created", zap.String("storyID", story.ID.String()), zap.String("genre", story.Genre))
	return nil
}

// GetByID retrieves a story by its unique ID.
func (r *pgStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	story := &models.Story{}
	err := r.db.QueryRow(ctx, getStoryByIDQuery, id).Scan(
		&story.ID,
		&story.UserID,
		&story.Genre,
		&story.TotalScenes,
		&story.CurrentScene,
		&story.XMeter,
		&story.XMeterType,
		&story.IsCompleted,
		&story.IsVictory,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Story not found", zap.String("storyID", id.String()))
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story by ID", zap.Error(err), zap.String("storyID", id.String()))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return story, nil
}
