package generation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GeminiConfig configures the Gemini completer
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini is a Completer backed by the Gemini generateContent endpoint.
type Gemini struct {
	client *resty.Client
	model  string
}

var _ Completer = (*Gemini)(nil)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGemini creates a Gemini completer
func NewGemini(config GeminiConfig) *Gemini {
	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", config.APIKey)
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}

	return &Gemini{
		client: client,
		model:  config.Model,
	}
}

// Complete sends prompt as a single user turn and returns the concatenated
// text of the first candidate.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: geminiGenerationConfig{ResponseMimeType: "application/json"},
	}

	var (
		result  geminiResponse
		failure geminiError
	)

	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("model", g.model).
		SetBody(body).
		SetResult(&result).
		SetError(&failure).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.IsError() {
		if resp.StatusCode() == http.StatusTooManyRequests || failure.Error.Status == "RESOURCE_EXHAUSTED" {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, describe(resp, failure))
		}
		return "", fmt.Errorf("%w: %s", ErrUpstream, describe(resp, failure))
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", ErrParse)
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty candidate", ErrParse)
	}

	return text.String(), nil
}

func describe(resp *resty.Response, failure geminiError) string {
	if failure.Error.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), failure.Error.Message)
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode())
}
