package openai

import (
	"context"
	"fmt"
	"strings"

	"robopost/domain/repository"
	"robopost/infrastructure/logger"

	openai "github.com/sashabaranov/go-openai"
)

const (
	personaInstruction = "You are a twitter persona that writes actually useful, insightful, and slightly provocative tweets. Role models are Paul Graham, Naval Ravikant."

	defaultPrompt = "Think about a few tweets or shitposts that you would like to write. " +
		"Then find the one that would perform best on twitter. " +
		"Your response should include the tokens <final_tweet> before the final tweet text."

	finalStartMarker = "<final_tweet>"
	finalEndMarker   = "</final_tweet>"

	truncationMarker = "..."
)

// Generator wraps the OpenAI chat-completion backend. All backend failures
// surface as errors that the posting cycle treats as "no content this tick".
type Generator struct {
	client     *openai.Client
	model      string
	maxTokens  int
	candidates int
	maxLength  int
}

func NewGenerator(apiKey, model string, maxTokens, candidates, maxLength int) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if candidates <= 0 {
		candidates = 1
	}
	if maxLength <= 0 {
		maxLength = 280
	}
	return &Generator{
		client:     openai.NewClient(apiKey),
		model:      model,
		maxTokens:  maxTokens,
		candidates: candidates,
		maxLength:  maxLength,
	}, nil
}

var _ repository.IContentGenerator = (*Generator)(nil)

// Generate produces a publishable post. An empty promptOverride uses the
// default prompt.
func (g *Generator) Generate(ctx context.Context, promptOverride string) (string, error) {
	prompt := promptOverride
	if prompt == "" {
		prompt = defaultPrompt
	}
	return g.complete(ctx, prompt)
}

// GenerateReply produces a reply to someone else's post.
func (g *Generator) GenerateReply(ctx context.Context, authorName, text string) (string, error) {
	prompt := fmt.Sprintf(
		"Someone with the name of '%s' posted the following:\n<BEGIN POST>%s<END POST>\n"+
			"Write a snarky but supportive, intelligent reply. Do not use hashtags. "+
			"Your response should include the tokens <final_tweet> before the final reply text.",
		authorName, text)
	return g.complete(ctx, prompt)
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	lg := logger.GetLogger()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: personaInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: g.maxTokens,
		N:         g.candidates,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	raw := resp.Choices[0].Message.Content
	lg.WithField("length", len(raw)).Debug("Raw completion received")

	extracted, ok := extractFinal(raw)
	if !ok {
		return "", fmt.Errorf("completion is missing the final answer markers")
	}
	text := Sanitize(extracted, g.maxLength)
	if text == "" {
		return "", fmt.Errorf("completion was empty after sanitization")
	}
	return text, nil
}

// extractFinal pulls the text between the final-answer markers. A missing
// start marker is a generation failure; a missing end marker takes the rest.
func extractFinal(raw string) (string, bool) {
	start := strings.Index(raw, finalStartMarker)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(finalStartMarker):]
	if end := strings.Index(rest, finalEndMarker); end != -1 {
		rest = rest[:end]
	}
	return rest, true
}

// Sanitize trims surrounding whitespace and quoting characters until stable,
// normalizes em dashes, and truncates to maxLength with a trailing marker.
// Returns "" for input that has no usable text.
func Sanitize(raw string, maxLength int) string {
	const cutset = "\"'` \t\r\n"
	text := raw
	for {
		trimmed := strings.Trim(text, cutset)
		if trimmed == text {
			break
		}
		text = trimmed
	}
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "—", "-")

	runes := []rune(text)
	if maxLength > len(truncationMarker) && len(runes) > maxLength {
		text = string(runes[:maxLength-len(truncationMarker)]) + truncationMarker
	}
	return text
}
