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

// Compile-time check to ensure pgUserRepository implements UserRepository.
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

const createUserQuery = `
INSERT INTO users (id, name, gender, email, face_image_url, credits, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

const getUserByIDQuery = `
SELECT id, name, gender, email, face_image_url, credits, created_at, updated_at
FROM users
WHERE id = $1`

const updateUserCreditsQuery = `
UPDATE users SET credits = $2, updated_at = NOW() WHERE id = $1`

// Create inserts a new user record.
func (r *pgUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, createUserQuery,
		user.ID, user.Name, user.Gender, user.Email, user.FaceImageURL, user.Credits, user.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err), zap.String("email", user.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}
	r.logger.Info("User created", zap.String("userID", user.ID.String()))
	return nil
}

// GetByID retrieves a user by its unique ID.
func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, getUserByIDQuery, id).Scan(
		&user.ID,
		&user.Name,
		&user.Gender,
		&user.Email,
		&user.FaceImageURL,
		&user.Credits,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found", zap.String("userID", id.String()))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by ID", zap.Error(err), zap.String("userID", id.String()))
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// UpdateCredits overwrites the user's credit balance.
func (r *pgUserRepository) UpdateCredits(ctx context.Context, id uuid.UUID, credits int) error {
	tag, err := r.db.Exec(ctx, updateUserCreditsQuery, id, credits)
	if err != nil {
		r.logger.Error("Failed to update user credits", zap.Error(err), zap.String("userID", id.String()))
		return fmt.Errorf("failed to update credits for user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	r.logger.Debug("User credits updated", zap.String("userID", id.String()), zap.Int("credits", credits))
	return nil
}
