// Package generation produces short motivational content from a remote
// text generation service.
package generation

import (
	"context"
	"fmt"
	"strings"
)

// Content is a motivational message paired with a practical tip.
type Content struct {
	Message string `json:"message"`
	Tip     string `json:"tip"`
}

// IsZero reports whether no content has been set.
func (c Content) IsZero() bool {
	return c.Message == "" && c.Tip == ""
}

// Request describes what to ask for in each half of the content.
type Request struct {
	Message string
	Tip     string
}

// Generator turns a Request into Content.
type Generator interface {
	Generate(ctx context.Context, req Request) (Content, error)
}

// FallbackContent is shown when generation fails for good.
var FallbackContent = Content{
	Message: "We couldn't fetch a fresh message right now, but your countdown is still running.",
	Tip:     "Pick one small task for today and finish it before checking back.",
}

// BuildPrompt bundles both asks into a single instruction that demands a
// two-field JSON document.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are writing short content for a personal countdown.\n")
	fmt.Fprintf(&b, "1. Motivational message: %s\n", req.Message)
	fmt.Fprintf(&b, "2. Practical tip: %s\n", req.Tip)
	b.WriteString(`Respond ONLY with a JSON object of the form {"message": "<motivational message>", "tip": "<practical tip>"}. `)
	b.WriteString("Do not add any other text.")
	return b.String()
}
