// Package models defines the core domain entities of the adventure server.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Supported user genders. Gender only influences how the protagonist is
// described in generated prose and image prompts.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderNeutral = "neutral"
)

// User is a player account with a prepaid credit balance.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Gender       string    `db:"gender" json:"gender"`
	Email        string    `db:"email" json:"email"`
	FaceImageURL string    `db:"face_image_url" json:"face_image_url"`
	Credits      int       `db:"credits" json:"credits"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectPhrase describes the protagonist for image prompts.
func (u *User) SubjectPhrase() string {
	switch u.Gender {
	case GenderMale:
		return "a man"
	case GenderFemale:
		return "a woman"
	default:
		return "a person"
	}
}

// Pronouns returns the pronoun pair used when prompting the narrative model.
func (u *User) Pronouns() string {
	switch u.Gender {
	case GenderMale:
		return "he/him"
	case GenderFemale:
		return "she/her"
	default:
		return "they/them"
	}
}

// Story is a single playthrough of a branching narrative.
type Story struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Genre        string    `db:"genre" json:"genre"`
	TotalScenes  int       `db:"total_scenes" json:"total_scenes"`
	CurrentScene int       `db:"current_scene" json:"current_scene"`
	XMeter       int       `db:"x_meter" json:"x_meter"`
	XMeterType   string    `db:"x_meter_type" json:"x_meter_type"`
	IsCompleted  bool      `db:"is_completed" json:"is_completed"`
	IsVictory    bool      `db:"is_victory" json:"is_victory"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Scene is an immutable, generated story beat. Its identity within a story
// is the scene key.
type Scene struct {
	ID            uuid.UUID `db:"id" json:"id"`
	StoryID       uuid.UUID `db:"story_id" json:"story_id"`
	SceneNumber   int       `db:"scene_number" json:"scene_number"`
	SceneKey      string    `db:"scene_key" json:"scene_key"`
	Text          []string  `db:"text" json:"text"`
	ImagePrompt   string    `db:"image_prompt" json:"image_prompt"`
	ImageURL      string    `db:"image_url" json:"image_url"`
	Options       []string  `db:"options" json:"options"`
	IsCorrectPath []bool    `db:"is_correct_path" json:"is_correct_path"`
	IsGameOver    bool      `db:"is_game_over" json:"is_game_over"`
	IsMainPath    bool      `db:"is_main_path" json:"is_main_path"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SceneKey derives the cache identity of a scene. Main-path scenes use the
// "a_" prefix, wrong-path detours the "b_" prefix.
func SceneKey(sceneNumber int, wrongPath bool) string {
	if wrongPath {
		return fmt.Sprintf("b_%d", sceneNumber)
	}
	return fmt.Sprintf("a_%d", sceneNumber)
}

// SceneResult is what the orchestrator hands back to the transport layer.
type SceneResult struct {
	SceneKey    string   `json:"sceneKey"`
	SceneNumber int      `json:"sceneNumber"`
	Text        []string `json:"text"`
	ImageURL    string   `json:"imageUrl"`
	Options     []string `json:"options"`
	Cached      bool     `json:"cached"`
	IsGameOver  bool     `json:"isGameOver"`
}

// SceneDraft is the narrative model's reply, before illustration and
// persistence.
type SceneDraft struct {
	Text        []string `json:"text"`
	ImagePrompt string   `json:"image_prompt"`
	Options     []string `json:"options"`
}

// DraftSource records where a scene draft came from.
type DraftSource string

const (
	// DraftSourceModel marks drafts produced by the narrative model.
	DraftSourceModel DraftSource = "model"
	// DraftSourceFallback marks canned drafts substituted after model failure.
	DraftSourceFallback DraftSource = "fallback"
	// DraftSourceLocal marks drafts composed without the model (finales).
	DraftSourceLocal DraftSource = "local"
)

// DraftResult pairs a scene draft with its provenance.
type DraftResult struct {
	Draft  *SceneDraft
	Source DraftSource
}
