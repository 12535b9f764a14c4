package canonicalize

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// unknownAnswer is what the model is told to say when it does not know.
const unknownAnswer = "UNKNOWN"

// generator is the slice of the genai Models service used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for the sort name.
type Gemini struct {
	models generator
	model  string
}

// NewGemini creates a Gemini canonicalizer using the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.NewConfigError("canonicalize", "gemini canonicalizer requires an API key", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, errors.NewConfigError("canonicalize", "failed to create gemini client", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: client.Models, model: model}, nil
}

func (g *Gemini) CanonicalizeAuthorName(ctx context.Context, identifier *catalog.Identifier, displayName string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt(identifier, displayName)), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", errors.WrapResource("generate", "sort name", displayName, err)
	}
	return parseAnswer(resp.Text()), nil
}

func prompt(identifier *catalog.Identifier, displayName string) string {
	var b strings.Builder
	b.WriteString("You are a cataloging librarian. Give the library catalog sort name ")
	b.WriteString(`("Family, Given") for the author `)
	fmt.Fprintf(&b, "%q", displayName)
	if identifier != nil {
		fmt.Fprintf(&b, ", who wrote the book with %s %s", identifier.Type, identifier.Value)
	}
	b.WriteString(". Reply with the sort name only, or ")
	b.WriteString(unknownAnswer)
	b.WriteString(" if you are not sure.")
	return b.String()
}

func parseAnswer(text string) string {
	answer := strings.TrimSpace(text)
	answer = strings.Trim(answer, "\"'`")
	answer = strings.TrimSpace(strings.SplitN(answer, "\n", 2)[0])
	if answer == "" || strings.EqualFold(answer, unknownAnswer) {
		return ""
	}
	return answer
}
