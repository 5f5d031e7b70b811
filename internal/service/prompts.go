package service

import (
	"fmt"
	"regexp"
	"strings"

	"adventure-server/internal/models"
)

// sceneClass is the narrative role of a requested scene. It selects the
// prompt template and the option layout.
type sceneClass string

const (
	classOpening      sceneClass = "opening"
	classContinuation sceneClass = "continuation"
	classPenalty      sceneClass = "penalty"
	classFinale       sceneClass = "finale"
)

func classify(sceneNumber, totalScenes int, wrongPath bool) sceneClass {
	switch {
	case wrongPath:
		return classPenalty
	case sceneNumber > totalScenes:
		return classFinale
	case sceneNumber == 1:
		return classOpening
	default:
		return classContinuation
	}
}

// clothingPattern extracts what the protagonist wears from the first
// main-path image prompt, to keep the illustrated character consistent.
var clothingPattern = regexp.MustCompile(`wearing ([^,]+)`)

func clothingFragment(firstImagePrompt string) string {
	match := clothingPattern.FindStringSubmatch(firstImagePrompt)
	if len(match) < 2 {
		return ""
	}
	return "wearing " + strings.TrimSpace(match[1])
}

const draftFormatInstructions = `Reply with a single JSON object and nothing else:
{"text": ["paragraph 1", "paragraph 2"], "image_prompt": "one-sentence illustration description", "options": ["choice A", "choice B"]}
"text" holds 2-3 short paragraphs of second-person prose. "image_prompt" must describe the protagonist and the scene in one sentence, starting with the protagonist's appearance. "options" must hold exactly two choices: the first advances the story safely, the second is a tempting mistake.`

func systemPrompt(story *models.Story) string {
	return fmt.Sprintf(
		"You are the narrator of a branching %s adventure. The story is dramatic, concrete and personal, never meta. Track the protagonist's %s implicitly through the prose. %s",
		story.Genre, story.XMeterType, draftFormatInstructions)
}

func openingPrompt(story *models.Story, user *models.User) string {
	return fmt.Sprintf(
		"Write the opening scene of a %s story, scene 1 of %d. The protagonist is %s named %s (%s). Establish the setting and end on a decision. In image_prompt, describe %s including what they are wearing.",
		story.Genre, story.TotalScenes, user.SubjectPhrase(), user.Name, user.Pronouns(),
		user.SubjectPhrase())
}

func continuationPrompt(story *models.Story, user *models.User, sceneNumber int, previousChoice, clothing string) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"Continue the %s story at scene %d of %d. The protagonist is %s named %s (%s).",
		story.Genre, sceneNumber, story.TotalScenes, user.SubjectPhrase(), user.Name, user.Pronouns())
	if previousChoice != "" {
		fmt.Fprintf(&b, " They just chose: %q.", previousChoice)
	}
	fmt.Fprintf(&b, " Their %s stands at %d of 100.", story.XMeterType, story.XMeter)
	if clothing != "" {
		fmt.Fprintf(&b, " In image_prompt, keep the protagonist %s.", clothing)
	}
	if sceneNumber >= story.TotalScenes-2 {
		b.WriteString(" The story is approaching its climax; raise the stakes.")
	}
	return b.String()
}

func penaltyPrompt(story *models.Story, user *models.User, sceneNumber int, previousChoice, clothing string) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"Write the painful consequences of a bad decision in the %s story, as a detour from scene %d. The protagonist is %s named %s (%s).",
		story.Genre, sceneNumber, user.SubjectPhrase(), user.Name, user.Pronouns())
	if previousChoice != "" {
		fmt.Fprintf(&b, " The mistake was: %q.", previousChoice)
	}
	fmt.Fprintf(&b,
		" The scene costs them some %s but leaves a way back. In options, offer a single choice that returns them to the main path.",
		story.XMeterType)
	if clothing != "" {
		fmt.Fprintf(&b, " In image_prompt, keep the protagonist %s.", clothing)
	}
	return b.String()
}

// fallbackDraft substitutes a playable scene when the narrative model fails
// or returns something unparseable.
func fallbackDraft(class sceneClass, story *models.Story, user *models.User) *models.SceneDraft {
	switch class {
	case classOpening:
		return &models.SceneDraft{
			Text: []string{
				fmt.Sprintf("Your %s adventure begins at the edge of the unknown.", story.Genre),
				"The path ahead splits, and there is no going back the way you came.",
			},
			ImagePrompt: fmt.Sprintf("%s standing at a crossroads, wearing a travel cloak", user.SubjectPhrase()),
			Options:     []string{"Take the well-lit road", "Slip into the shadows"},
		}
	case classPenalty:
		return &models.SceneDraft{
			Text: []string{
				"The choice turns against you almost immediately.",
				fmt.Sprintf("You pay for it in %s, and the only sensible move is to retreat.", strings.ToLower(story.XMeterType)),
			},
			ImagePrompt: fmt.Sprintf("%s recovering after a setback, dramatic scene", user.SubjectPhrase()),
			Options:     []string{"Go back"},
		}
	default:
		return &models.SceneDraft{
			Text: []string{
				"The story presses on, though the details blur for a moment.",
				"When the world sharpens again, a new decision is waiting.",
			},
			ImagePrompt: fmt.Sprintf("%s facing a difficult choice, %s setting", user.SubjectPhrase(), story.Genre),
			Options:     []string{"Press forward", "Take the risky shortcut"},
		}
	}
}

// finaleDraft composes the ending locally; the narrative model is never
// consulted for finales.
func finaleDraft(story *models.Story, user *models.User) *models.SceneDraft {
	if story.XMeter > 0 {
		return &models.SceneDraft{
			Text: []string{
				fmt.Sprintf("Against every odd, %s sees the journey through.", user.Name),
				fmt.Sprintf("With %d %s to spare, the %s story ends in victory.", story.XMeter, strings.ToLower(story.XMeterType), story.Genre),
			},
			ImagePrompt: fmt.Sprintf("%s triumphant at the end of the journey, golden light", user.SubjectPhrase()),
		}
	}
	return &models.SceneDraft{
		Text: []string{
			fmt.Sprintf("The journey asks more than %s has left to give.", user.Name),
			fmt.Sprintf("With no %s remaining, the %s story ends in defeat.", strings.ToLower(story.XMeterType), story.Genre),
		},
		ImagePrompt: fmt.Sprintf("%s defeated at the end of the journey, fading light", user.SubjectPhrase()),
	}
}

// gapFallbackDraft covers a live wrong-path request that prefetch never
// filled. Generic consequences with a single way back.
func gapFallbackDraft(story *models.Story) *models.SceneDraft {
	return &models.SceneDraft{
		Text: []string{
			"That was the wrong call, and you feel it at once.",
			fmt.Sprintf("Your %s takes a hit. Best to turn around while you still can.", strings.ToLower(story.XMeterType)),
		},
		ImagePrompt: "",
		Options:     []string{"Go back"},
	}
}
