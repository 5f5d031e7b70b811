package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"adventure-server/internal/models"
)

// ErrMalformedDraft is returned when the model reply cannot be parsed into
// a usable scene draft.
var ErrMalformedDraft = errors.New("malformed scene draft")

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// ExtractJSONBlock pulls a JSON object out of a model reply. Models often
// wrap JSON in a fenced code block; failing that, the reply is scanned for
// the outermost braces.
func ExtractJSONBlock(raw string) string {
	if match := jsonBlockRegex.FindStringSubmatch(raw); len(match) == 2 {
		return match[1]
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

// ParseSceneDraft parses and validates a model reply into a scene draft.
func ParseSceneDraft(raw string) (*models.SceneDraft, error) {
	block := ExtractJSONBlock(raw)

	var draft models.SceneDraft
	if err := json.Unmarshal([]byte(block), &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDraft, err)
	}

	if len(draft.Text) == 0 {
		return nil, fmt.Errorf("%w: empty text", ErrMalformedDraft)
	}
	for _, paragraph := range draft.Text {
		if strings.TrimSpace(paragraph) == "" {
			return nil, fmt.Errorf("%w: blank paragraph", ErrMalformedDraft)
		}
	}
	if strings.TrimSpace(draft.ImagePrompt) == "" {
		return nil, fmt.Errorf("%w: empty image prompt", ErrMalformedDraft)
	}

	return &draft, nil
}
