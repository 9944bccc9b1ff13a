package classify

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultJudgeModel = "gemini-2.0-flash"

const judgePrompt = `Decide whether this social media account belongs to an individual person or an organization.

Handle: @%s
Display name: %s
Bio: %s

Answer with exactly one word: HUMAN or ORG.`

// GeminiJudge implements Judge using the Gemini API. One request per
// classification, no retries; the caller applies the inclusion default on
// any failure.
type GeminiJudge struct {
	client *genai.Client
	model  string
}

// NewGeminiJudge creates a judge. model may be empty for the default.
func NewGeminiJudge(ctx context.Context, apiKey, model string) (*GeminiJudge, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = defaultJudgeModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiJudge{client: client, model: model}, nil
}

// Judge asks the model for a single-token HUMAN/ORG classification.
func (j *GeminiJudge) Judge(ctx context.Context, bio, displayName, h string) (Kind, error) {
	prompt := fmt.Sprintf(judgePrompt, h, displayName, bio)
	resp, err := j.client.Models.GenerateContent(ctx, j.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return Unknown, fmt.Errorf("gemini judge: %w", err)
	}
	reply := strings.ToUpper(strings.TrimSpace(resp.Text()))
	hasHuman := strings.Contains(reply, "HUMAN")
	hasOrg := strings.Contains(reply, "ORG")
	switch {
	case hasHuman && !hasOrg:
		return Human, nil
	case hasOrg && !hasHuman:
		return Org, nil
	}
	return Unknown, fmt.Errorf("ambiguous judge reply: %q", truncate(reply, 80))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
