package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/codeboxhq/codebox/internal/apperror"
)

// Output limits, matching what search engines display.
const (
	MaxTitleLength       = 60
	MaxDescriptionLength = 160
	MaxKeywords          = 10

	// MinInputTitleLength guards against prompts with no signal in them.
	MinInputTitleLength = 5
)

// modelPriority is the fallback chain, cheapest-and-fastest first. A model
// that answers with a quota error or is not available on the account is
// skipped; any other failure aborts the chain.
var modelPriority = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.5-flash-lite",
	"gemini-2.5-flash",
}

// Metadata is the generated SEO block. Field names mirror the JSON the
// model is prompted to emit.
type Metadata struct {
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	MetaKeywords    []string `json:"meta_keywords"`
}

// Input describes the snippet to generate metadata for.
type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Content     string `json:"content"`
}

// TextGenerator produces raw model output for a prompt. The genai-backed
// implementation is Client; tests substitute fakes.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// Client calls the Gemini API via the official genai SDK.
type Client struct {
	client *genai.Client
}

// NewClient builds a Gemini-backed text generator.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("meta: Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("meta: creating genai client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Generator runs the prompt through the model fallback chain and parses the
// result into validated Metadata.
type Generator struct {
	text   TextGenerator
	models []string
	logger *slog.Logger
}

func NewGenerator(text TextGenerator, logger *slog.Logger) *Generator {
	return &Generator{
		text:   text,
		models: modelPriority,
		logger: logger,
	}
}

// Generate returns metadata for the snippet plus the name of the model that
// produced it.
//
// Chain semantics: models are tried in priority order. Quota exhaustion and
// model-not-available advance to the next model; any other error aborts
// immediately — a malformed request fails the same way on every model, so
// retrying would only burn quota. If every model is skipped, the caller
// gets an Unavailable error (the condition is transient — quotas reset).
func (g *Generator) Generate(ctx context.Context, in Input) (*Metadata, string, error) {
	if len(strings.TrimSpace(in.Title)) < MinInputTitleLength {
		return nil, "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be at least %d characters", MinInputTitleLength))
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, "", apperror.ValidationFailed("content", "content is required")
	}

	prompt := buildPrompt(in)

	var lastErr error
	for _, model := range g.models {
		raw, err := g.text.GenerateText(ctx, model, prompt)
		if err != nil {
			if skippable(err) {
				lastErr = err
				g.logger.Warn("model unavailable, trying next",
					slog.String("model", model),
					slog.String("error", err.Error()),
				)
				continue
			}
			return nil, "", fmt.Errorf("meta: model %s: %w", model, err)
		}

		md, err := parseMetadata(raw)
		if err != nil {
			// The model answered but not with usable JSON. Treat like any
			// other hard failure — a retry on a different model is not
			// guaranteed to do better and doubles the cost.
			return nil, "", fmt.Errorf("meta: model %s returned unparseable output: %w", model, err)
		}

		g.logger.Info("metadata generated", slog.String("model", model))
		return md, model, nil
	}

	msg := "all metadata models are currently exhausted, try again later"
	if lastErr != nil {
		msg = fmt.Sprintf("%s (last error: %s)", msg, lastErr)
	}
	return nil, "", apperror.Unavailable(msg)
}

// skippable reports whether the failure is specific to this model (quota
// exhausted, model not available on the account) rather than to the request.
// Model-not-found is only recognized through the typed API error: a bare
// "not found" substring would also match transport errors like "host not
// found", which no other model can fix.
func skippable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code == 404
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}

func buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You are an SEO assistant for a code snippet sharing site.\n")
	b.WriteString("Generate SEO metadata for the following code snippet.\n")
	b.WriteString("Respond with ONLY a JSON object, no prose, in this exact shape:\n")
	b.WriteString(`{"meta_title": "...", "meta_description": "...", "meta_keywords": ["...", "..."]}` + "\n\n")
	fmt.Fprintf(&b, "Constraints: meta_title at most %d characters, meta_description at most %d characters, at most %d keywords.\n\n",
		MaxTitleLength, MaxDescriptionLength, MaxKeywords)
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	if in.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", in.Description)
	}
	fmt.Fprintf(&b, "Language: %s\n", in.Language)
	fmt.Fprintf(&b, "Code:\n%s\n", in.Content)
	return b.String()
}

// parseMetadata strips markdown code fences the model tends to wrap its
// answer in, parses the JSON, and enforces the field requirements and
// length caps.
func parseMetadata(raw string) (*Metadata, error) {
	cleaned := stripFences(raw)

	var md Metadata
	if err := json.Unmarshal([]byte(cleaned), &md); err != nil {
		return nil, fmt.Errorf("parsing model output: %w", err)
	}

	md.MetaTitle = strings.TrimSpace(md.MetaTitle)
	md.MetaDescription = strings.TrimSpace(md.MetaDescription)
	if md.MetaTitle == "" {
		return nil, errors.New("model output missing meta_title")
	}
	if md.MetaDescription == "" {
		return nil, errors.New("model output missing meta_description")
	}
	// An empty keyword list is a valid answer; only an absent field is a
	// malformed one.
	if md.MetaKeywords == nil {
		return nil, errors.New("model output missing meta_keywords")
	}

	md.MetaTitle = truncate(md.MetaTitle, MaxTitleLength)
	md.MetaDescription = truncate(md.MetaDescription, MaxDescriptionLength)
	if len(md.MetaKeywords) > MaxKeywords {
		md.MetaKeywords = md.MetaKeywords[:MaxKeywords]
	}
	for i, kw := range md.MetaKeywords {
		md.MetaKeywords[i] = strings.TrimSpace(kw)
	}

	return &md, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary so multi-byte characters are never split.
	runes := []rune(s)
	for len(string(runes)) > max {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
