package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseContent extracts the message/tip document from a raw model reply.
// Code fences and other text around the outermost JSON object are ignored.
func ParseContent(raw string) (Content, error) {
	text := strings.TrimSpace(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Content{}, fmt.Errorf("%w: no JSON object in reply", ErrParse)
	}

	var payload Content
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return Content{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	payload.Message = strings.TrimSpace(payload.Message)
	payload.Tip = strings.TrimSpace(payload.Tip)
	if payload.Message == "" {
		return Content{}, fmt.Errorf("%w: missing message", ErrParse)
	}
	if payload.Tip == "" {
		return Content{}, fmt.Errorf("%w: missing tip", ErrParse)
	}

	return payload, nil
}
