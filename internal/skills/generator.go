package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"skillnet/internal/provider"
)

const defaultModel = "gemini-2.0-flash"

const analyzePrompt = `You are an expert at analyzing social media posts to extract a person's professional profile.

Analyze the posts below from %s (@%s) and extract their skill profile.

Return ONLY a JSON object with these fields:
- "person_name": the person's name
- "x_handle": their handle without @
- "core_expertise": list of core topics or fields they are expert in
- "unique_insights": novel takes, frameworks, or unique perspectives found in their posts
- "communication_style": how they communicate (e.g. witty, technical, concise)
- "agent_instructions": system instructions allowing an AI to act with this person's expertise
- "sample_posts": a few high-quality posts that represent their style and knowledge

Posts:
%s`

// Generator produces skill profiles from account content using a language
// model.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator builds a generator from an API key. Model falls back to the
// default when empty.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("skills: api key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("skills: genai client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Generator{client: client, model: model}, nil
}

// Generate analyzes an account's content and returns a structured profile.
// Highlights are prepended to the post corpus since they carry the account
// owner's own selection of representative content.
func (g *Generator) Generate(ctx context.Context, personName, handle string, highlights, posts []provider.Post) (*Profile, error) {
	corpus := buildCorpus(highlights, posts)
	if strings.TrimSpace(corpus) == "" {
		return nil, fmt.Errorf("skills: no post text for @%s", handle)
	}
	if personName == "" {
		personName = handle
	}

	prompt := fmt.Sprintf(analyzePrompt, personName, handle, corpus)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("skills: generate for @%s: %w", handle, err)
	}

	profile, err := parseProfileJSON(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("skills: parse profile for @%s: %w", handle, err)
	}
	if profile.Handle == "" {
		profile.Handle = handle
	}
	if profile.PersonName == "" {
		profile.PersonName = personName
	}
	return profile, nil
}

func buildCorpus(highlights, posts []provider.Post) string {
	var b strings.Builder
	for _, p := range highlights {
		if t := strings.TrimSpace(p.Text); t != "" {
			b.WriteString("[highlight] ")
			b.WriteString(t)
			b.WriteString("\n\n")
		}
	}
	for _, p := range posts {
		if t := strings.TrimSpace(p.Text); t != "" {
			b.WriteString(t)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// parseProfileJSON parses the model's reply, tolerating markdown code fences.
func parseProfileJSON(text string) (*Profile, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var p Profile
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
