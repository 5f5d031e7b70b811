package interfaces

import (
	"context"

	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts a pgx pool or transaction so repositories can run against
// either.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository provides access to user records and their credit balance.
type UserRepository interface {
	// Create inserts a new user record.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID. Returns models.ErrUserNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// UpdateCredits overwrites the user's credit balance.
	UpdateCredits(ctx context.Context, id uuid.UUID, credits int) error
}

// StoryRepository provides access to playthrough records.
type StoryRepository interface {
	// Create inserts a new story record.
	Create(ctx context.Context, story *models.Story) error

	// GetByID retrieves a story by ID. Returns models.ErrStoryNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
}

// SceneRepository is the durable store of generated scenes.
type SceneRepository interface {
	// Create inserts a new scene record. Scenes are immutable once persisted.
	Create(ctx context.Context, scene *models.Scene) error

	// FindByStoryAndKey retrieves a scene by its cache identity.
	// Returns models.ErrSceneNotFound if absent.
	FindByStoryAndKey(ctx context.Context, storyID uuid.UUID, sceneKey string) (*models.Scene, error)

	// FirstMainPathImagePrompt returns the image prompt of the earliest
	// main-path scene of a story, or "" when the story has none yet.
	FirstMainPathImagePrompt(ctx context.Context, storyID uuid.UUID) (string, error)
}

// SceneCache is a fast lookaside cache in front of SceneRepository.
// Implementations must treat failures as misses; Postgres stays authoritative.
type SceneCache interface {
	Get(ctx context.Context, storyID uuid.UUID, sceneKey string) (*models.Scene, error)
	Set(ctx context.Context, scene *models.Scene) error
}
