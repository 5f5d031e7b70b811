package service

import (
	"context"
	"errors"
	"fmt"

	"adventure-server/internal/ai"
	"adventure-server/internal/interfaces"
	"adventure-server/internal/messaging"
	"adventure-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SceneCost is the fixed credit price of one generated scene.
const SceneCost = 10

// ResolveParams identifies the scene a caller wants.
type ResolveParams struct {
	StoryID        uuid.UUID
	SceneNumber    int
	WrongPath      bool
	PreviousChoice string
	Prefetch       bool
}

// SceneResolver serves scenes, generating and persisting them on demand.
type SceneResolver interface {
	ResolveScene(ctx context.Context, params ResolveParams) (*models.SceneResult, error)
}

// SceneService is the scene orchestrator: it classifies the requested
// scene, serves it from cache when possible, and otherwise generates,
// illustrates, persists and charges for it.
type SceneService struct {
	stories   interfaces.StoryRepository
	users     interfaces.UserRepository
	scenes    interfaces.SceneRepository
	cache     interfaces.SceneCache
	narrator  interfaces.NarrativeGenerator
	images    interfaces.ImageGenerator
	ledger    CreditLedger
	publisher messaging.ScenePublisher
	flights   singleflight.Group
	logger    *zap.Logger
}

var _ SceneResolver = (*SceneService)(nil)

// SceneServiceDeps bundles the orchestrator's collaborators.
type SceneServiceDeps struct {
	Stories   interfaces.StoryRepository
	Users     interfaces.UserRepository
	Scenes    interfaces.SceneRepository
	Cache     interfaces.SceneCache
	Narrator  interfaces.NarrativeGenerator
	Images    interfaces.ImageGenerator
	Ledger    CreditLedger
	Publisher messaging.ScenePublisher
}

// NewSceneService creates the scene orchestrator.
func NewSceneService(deps SceneServiceDeps, logger *zap.Logger) *SceneService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &SceneService{
		stories:   deps.Stories,
		users:     deps.Users,
		scenes:    deps.Scenes,
		cache:     deps.Cache,
		narrator:  deps.Narrator,
		images:    deps.Images,
		ledger:    deps.Ledger,
		publisher: publisher,
		logger:    logger.Named("SceneService"),
	}
}

// ResolveScene returns the scene for (storyID, sceneKey), generating it on a
// cache miss. Generation for the same key is deduplicated: concurrent
// callers await a single in-flight build instead of generating twice.
func (s *SceneService) ResolveScene(ctx context.Context, params ResolveParams) (*models.SceneResult, error) {
	if params.SceneNumber <= 0 {
		return nil, fmt.Errorf("%w: scene number must be positive", models.ErrInvalidInput)
	}

	story, err := s.stories.GetByID(ctx, params.StoryID)
	if err != nil {
		return nil, err
	}
	if story.IsCompleted {
		return nil, models.ErrStoryCompleted
	}

	sceneKey := models.SceneKey(params.SceneNumber, params.WrongPath)

	scene, err := s.lookupScene(ctx, story, sceneKey)
	if err == nil {
		sceneCacheHits.Inc()
		return sceneResult(scene, true), nil
	}
	if !errors.Is(err, models.ErrSceneNotFound) {
		return nil, err
	}
	sceneCacheMisses.Inc()

	user, err := s.users.GetByID(ctx, story.UserID)
	if err != nil {
		return nil, err
	}
	if !params.Prefetch && user.Credits < SceneCost {
		return nil, models.ErrInsufficientCredits
	}

	// The build outcome is persisted and shared with joined callers, so it
	// runs detached from the owner's request lifetime.
	flightKey := story.ID.String() + ":" + sceneKey
	built, err, shared := s.flights.Do(flightKey, func() (any, error) {
		return s.buildScene(context.WithoutCancel(ctx), story, user, sceneKey, params)
	})
	if err != nil {
		return nil, err
	}
	scene = built.(*models.Scene)

	// The flight owner pays; a caller that joined an in-flight build is
	// served like a cache hit. A live wrong-path miss is served as a free
	// canned detour, never debited.
	if !params.Prefetch && !params.WrongPath && !shared {
		if err := s.ledger.Charge(ctx, user.ID, SceneCost); err != nil {
			debitFailures.Inc()
			s.logger.Warn("Debit failed after scene generation, serving scene anyway",
				zap.String("user_id", user.ID.String()),
				zap.String("scene_key", sceneKey),
				zap.Error(err))
		}
	}

	return sceneResult(scene, shared), nil
}

// lookupScene checks Redis first, then Postgres, backfilling Redis on a
// store hit. Returns models.ErrSceneNotFound when neither has the scene.
func (s *SceneService) lookupScene(ctx context.Context, story *models.Story, sceneKey string) (*models.Scene, error) {
	if scene, err := s.cache.Get(ctx, story.ID, sceneKey); err == nil {
		return scene, nil
	}

	scene, err := s.scenes.FindByStoryAndKey(ctx, story.ID, sceneKey)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, scene); err != nil {
		s.logger.Warn("Failed to backfill scene cache", zap.String("scene_key", sceneKey), zap.Error(err))
	}
	return scene, nil
}

// buildScene generates, illustrates and persists a scene. Runs inside the
// per-key singleflight.
func (s *SceneService) buildScene(ctx context.Context, story *models.Story, user *models.User, sceneKey string, params ResolveParams) (*models.Scene, error) {
	// A prefetch may have persisted the scene while this call awaited the
	// flight slot.
	if scene, err := s.scenes.FindByStoryAndKey(ctx, story.ID, sceneKey); err == nil {
		return scene, nil
	}

	class := classify(params.SceneNumber, story.TotalScenes, params.WrongPath)

	var result models.DraftResult
	switch {
	case params.WrongPath && !params.Prefetch:
		// Prefetch never filled this detour. Degrade to a canned scene
		// rather than make the player wait for generation.
		s.logger.Warn("Wrong-path scene missing during live play, using gap fallback",
			zap.String("story_id", story.ID.String()),
			zap.String("scene_key", sceneKey))
		result = models.DraftResult{Draft: gapFallbackDraft(story), Source: models.DraftSourceLocal}
	case class == classFinale:
		result = models.DraftResult{Draft: finaleDraft(story, user), Source: models.DraftSourceLocal}
	default:
		result = s.generateDraft(ctx, class, story, user, params)
	}
	draft := result.Draft

	options, mask := s.layoutOptions(class, draft)

	// Live wrong-path scenes keep the placeholder; everything else gets a
	// real illustration, including prefetched detours.
	imageURL := s.images.PlaceholderURL()
	if !(params.WrongPath && !params.Prefetch) {
		imageURL = s.images.Generate(ctx, draft.ImagePrompt, user.FaceImageURL)
	}
	if imageURL == s.images.PlaceholderURL() {
		imageFallbacks.Inc()
	}

	scene := &models.Scene{
		StoryID:       story.ID,
		SceneNumber:   params.SceneNumber,
		SceneKey:      sceneKey,
		Text:          draft.Text,
		ImagePrompt:   draft.ImagePrompt,
		ImageURL:      imageURL,
		Options:       options,
		IsCorrectPath: mask,
		IsGameOver:    class == classFinale,
		IsMainPath:    !params.WrongPath,
	}

	if err := s.scenes.Create(ctx, scene); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInternalServer, err)
	}
	scenesGenerated.WithLabelValues(string(class), string(result.Source)).Inc()

	if err := s.cache.Set(ctx, scene); err != nil {
		s.logger.Warn("Failed to cache generated scene", zap.String("scene_key", sceneKey), zap.Error(err))
	}

	if err := s.publisher.PublishSceneReady(ctx, messaging.SceneReadyPayload{
		StoryID:     story.ID,
		SceneKey:    sceneKey,
		SceneNumber: params.SceneNumber,
		Prefetch:    params.Prefetch,
		GameOver:    scene.IsGameOver,
	}); err != nil {
		s.logger.Warn("Failed to publish scene ready event", zap.String("scene_key", sceneKey), zap.Error(err))
	}

	return scene, nil
}

// generateDraft calls the narrative model and falls back to a canned draft
// when the model fails or replies with something unparseable.
func (s *SceneService) generateDraft(ctx context.Context, class sceneClass, story *models.Story, user *models.User, params ResolveParams) models.DraftResult {
	clothing := ""
	if class != classOpening {
		firstPrompt, err := s.scenes.FirstMainPathImagePrompt(ctx, story.ID)
		if err != nil {
			s.logger.Warn("Failed to load clothing continuity prompt", zap.Error(err))
		} else {
			clothing = clothingFragment(firstPrompt)
		}
	}

	var userPrompt string
	switch class {
	case classOpening:
		userPrompt = openingPrompt(story, user)
	case classPenalty:
		userPrompt = penaltyPrompt(story, user, params.SceneNumber, params.PreviousChoice, clothing)
	default:
		userPrompt = continuationPrompt(story, user, params.SceneNumber, params.PreviousChoice, clothing)
	}

	raw, err := s.narrator.Complete(ctx, systemPrompt(story), userPrompt)
	if err != nil {
		s.logger.Warn("Narrative generation failed, using fallback draft",
			zap.String("class", string(class)), zap.Error(err))
		return models.DraftResult{Draft: fallbackDraft(class, story, user), Source: models.DraftSourceFallback}
	}

	draft, err := ai.ParseSceneDraft(raw)
	if err != nil {
		s.logger.Warn("Narrative reply unparseable, using fallback draft",
			zap.String("class", string(class)), zap.Error(err))
		return models.DraftResult{Draft: fallbackDraft(class, story, user), Source: models.DraftSourceFallback}
	}
	return models.DraftResult{Draft: draft, Source: models.DraftSourceModel}
}

// layoutOptions normalizes the draft's choices to the class's shape: two
// options for main-path scenes (first one correct), one for detours, none
// for finales.
func (s *SceneService) layoutOptions(class sceneClass, draft *models.SceneDraft) ([]string, []bool) {
	switch class {
	case classFinale:
		return []string{}, []bool{}
	case classPenalty:
		option := "Go back"
		if len(draft.Options) > 0 && draft.Options[0] != "" {
			option = draft.Options[0]
		}
		return []string{option}, []bool{false}
	default:
		options := append([]string(nil), draft.Options...)
		defaults := []string{"Press forward", "Take the risky shortcut"}
		for len(options) < 2 {
			options = append(options, defaults[len(options)])
		}
		options = options[:2]
		return options, []bool{true, false}
	}
}

func sceneResult(scene *models.Scene, cached bool) *models.SceneResult {
	return &models.SceneResult{
		SceneKey:    scene.SceneKey,
		SceneNumber: scene.SceneNumber,
		Text:        scene.Text,
		ImageURL:    scene.ImageURL,
		Options:     scene.Options,
		Cached:      cached,
		IsGameOver:  scene.IsGameOver,
	}
}
