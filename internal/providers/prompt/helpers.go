package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type modelPromptsPayload struct {
	Prompts []string `json:"prompts"`
}

func buildInstruction(req Request) string {
	subject := coalesce(req.Description, "the product shown in the image")
	return fmt.Sprintf("Generate %d distinct prompts for %s photography of a product described as: %s. Return the prompts as a JSON array under the key \"prompts\".",
		clampCount(req.Count), coalesce(req.Template, "studio"), subject)
}

// parsePrompts decodes the model output and keeps at most n non-blank, unique prompts.
func parsePrompts(raw string, n int) ([]string, error) {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return nil, errors.New("empty payload")
	}
	var decoded modelPromptsPayload
	if strings.HasPrefix(cleaned, "[") {
		if err := json.Unmarshal([]byte(cleaned), &decoded.Prompts); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(decoded.Prompts))
	out := make([]string, 0, len(decoded.Prompts))
	for _, p := range decoded.Prompts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
		if len(out) == n {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no prompts in payload")
	}
	return out, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
