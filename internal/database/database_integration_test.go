package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"adventure-server/internal/database"
	"adventure-server/internal/interfaces"
	"adventure-server/internal/migration"
	"adventure-server/internal/models"
	"adventure-server/migrations"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RepositoryIntegrationSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	users       interfaces.UserRepository
	stories     interfaces.StoryRepository
	scenes      interfaces.SceneRepository
	cache       interfaces.SceneCache
}

func dockerAvailable() bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()
	_, err = cli.Ping(context.Background())
	return err == nil
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	logger := zap.NewNop()
	var err error

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("adventure_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	pgConnStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pgPool, err = pgxpool.New(s.ctx, pgConnStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, s.pgPool, logger)
	require.NoError(s.T(), migrator.Up(s.ctx), "Failed to run migrations")

	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	redisHost, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	redisPort, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)

	s.redisClient = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	require.NoError(s.T(), s.redisClient.Ping(s.ctx).Err(), "Failed to connect to test redis")

	s.users = database.NewPgUserRepository(s.pgPool, logger)
	s.stories = database.NewPgStoryRepository(s.pgPool, logger)
	s.scenes = database.NewPgSceneRepository(s.pgPool, logger)
	s.cache = database.NewRedisSceneCache(s.redisClient, time.Minute, logger)
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.rdContainer != nil {
		_ = s.rdContainer.Terminate(s.ctx)
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *RepositoryIntegrationSuite) newUser() *models.User {
	user := &models.User{
		Name:    "Ava",
		Gender:  models.GenderFemale,
		Email:   fmt.Sprintf("ava-%s@example.com", uuid.NewString()),
		Credits: 100,
	}
	require.NoError(s.T(), s.users.Create(s.ctx, user))
	return user
}

func (s *RepositoryIntegrationSuite) newStory(userID uuid.UUID) *models.Story {
	story := &models.Story{
		UserID:      userID,
		Genre:       "fantasy",
		TotalScenes: 22,
		XMeter:      100,
		XMeterType:  "Health",
	}
	require.NoError(s.T(), s.stories.Create(s.ctx, story))
	return story
}

func (s *RepositoryIntegrationSuite) TestUserLifecycle() {
	user := s.newUser()

	loaded, err := s.users.GetByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, loaded.Email)
	s.Equal(100, loaded.Credits)

	s.Require().NoError(s.users.UpdateCredits(s.ctx, user.ID, 90))
	loaded, err = s.users.GetByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(90, loaded.Credits)

	_, err = s.users.GetByID(s.ctx, uuid.New())
	s.ErrorIs(err, models.ErrUserNotFound)

	s.ErrorIs(s.users.UpdateCredits(s.ctx, uuid.New(), 50), models.ErrUserNotFound)
}

func (s *RepositoryIntegrationSuite) TestStoryLifecycle() {
	user := s.newUser()
	story := s.newStory(user.ID)

	loaded, err := s.stories.GetByID(s.ctx, story.ID)
	s.Require().NoError(err)
	s.Equal("fantasy", loaded.Genre)
	s.Equal(22, loaded.TotalScenes)
	s.False(loaded.IsCompleted)

	_, err = s.stories.GetByID(s.ctx, uuid.New())
	s.ErrorIs(err, models.ErrStoryNotFound)
}

func (s *RepositoryIntegrationSuite) TestSceneLifecycle() {
	user := s.newUser()
	story := s.newStory(user.ID)

	scene := &models.Scene{
		StoryID:       story.ID,
		SceneNumber:   1,
		SceneKey:      "a_1",
		Text:          []string{"line one", "line two"},
		ImagePrompt:   "a woman wearing a red cloak, forest",
		ImageURL:      "https://cdn.example.com/1.jpg",
		Options:       []string{"left", "right"},
		IsCorrectPath: []bool{true, false},
		IsMainPath:    true,
	}
	s.Require().NoError(s.scenes.Create(s.ctx, scene))

	// duplicate key must violate the unique constraint
	dup := *scene
	dup.ID = uuid.Nil
	s.Error(s.scenes.Create(s.ctx, &dup))

	loaded, err := s.scenes.FindByStoryAndKey(s.ctx, story.ID, "a_1")
	s.Require().NoError(err)
	s.Equal(scene.Text, loaded.Text)
	s.Equal(scene.Options, loaded.Options)
	s.Equal(scene.IsCorrectPath, loaded.IsCorrectPath)

	_, err = s.scenes.FindByStoryAndKey(s.ctx, story.ID, "b_1")
	s.ErrorIs(err, models.ErrSceneNotFound)

	later := &models.Scene{
		StoryID:     story.ID,
		SceneNumber: 2,
		SceneKey:    "a_2",
		Text:        []string{"later"},
		ImagePrompt: "a woman wearing a blue dress, castle",
		Options:     []string{"on", "back"},
		IsMainPath:  true,
	}
	s.Require().NoError(s.scenes.Create(s.ctx, later))

	prompt, err := s.scenes.FirstMainPathImagePrompt(s.ctx, story.ID)
	s.Require().NoError(err)
	s.Equal("a woman wearing a red cloak, forest", prompt)
}

func (s *RepositoryIntegrationSuite) TestSceneCache() {
	storyID := uuid.New()
	scene := &models.Scene{
		ID:          uuid.New(),
		StoryID:     storyID,
		SceneNumber: 3,
		SceneKey:    "a_3",
		Text:        []string{"cached text"},
		Options:     []string{"x", "y"},
	}

	_, err := s.cache.Get(s.ctx, storyID, "a_3")
	s.ErrorIs(err, models.ErrSceneNotFound)

	s.Require().NoError(s.cache.Set(s.ctx, scene))

	loaded, err := s.cache.Get(s.ctx, storyID, "a_3")
	s.Require().NoError(err)
	s.Equal(scene.Text, loaded.Text)
	s.Equal(scene.Options, loaded.Options)
}

func TestRepositoryIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	if !dockerAvailable() {
		t.Skip("docker is not available, skipping integration tests")
	}
	suite.Run(t, new(RepositoryIntegrationSuite))
}
