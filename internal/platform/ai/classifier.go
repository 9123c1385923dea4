// Package ai classifies free-text patient responses into triage categories
// using the OpenAI chat completions API.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Triage statuses assigned to a patient response.
const (
	StatusFine      = "Fine"
	StatusMildIssue = "Mild issue"
	StatusUrgent    = "Urgent"
)

// ValidStatus reports whether s is one of the three triage statuses.
func ValidStatus(s string) bool {
	return s == StatusFine || s == StatusMildIssue || s == StatusUrgent
}

// Analysis is the structured result of classifying a patient response.
type Analysis struct {
	Summary    string   `json:"summary"`
	Status     string   `json:"status"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
}

// FallbackAnalysis is the neutral result substituted when classification
// fails. "Mild issue" keeps an unanalyzed response visible to clinic staff
// without paging them for an emergency.
func FallbackAnalysis() *Analysis {
	return &Analysis{
		Summary:    "Unable to analyze response",
		Status:     StatusMildIssue,
		Confidence: 0,
		Keywords:   []string{},
	}
}

// Classifier analyzes a patient's free-text response.
type Classifier interface {
	Classify(ctx context.Context, responseText string) (*Analysis, error)
}

// Disabled is a Classifier for deployments without an API key. Every call
// fails, so callers fall through to FallbackAnalysis.
type Disabled struct{}

func (Disabled) Classify(context.Context, string) (*Analysis, error) {
	return nil, errors.New("ai classifier is not configured")
}

const systemPrompt = `You are a triage assistant for a medical clinic reviewing patient follow-up responses.
Classify the patient's message and respond with ONLY a JSON object, no other text:
{"summary": "<one sentence summary>", "status": "<Fine | Mild issue | Urgent>", "confidence": <0.0-1.0>, "keywords": ["<symptom or concern>", ...]}

Status meanings:
- "Fine": the patient is recovering well with no concerning symptoms.
- "Mild issue": minor discomfort or questions that should be reviewed but are not alarming.
- "Urgent": symptoms that may need prompt medical attention (severe pain, fever, bleeding, breathing trouble, worsening condition).`

// OpenAIClassifier implements Classifier with the OpenAI chat API.
type OpenAIClassifier struct {
	client openai.Client
	model  string
}

// NewOpenAIClassifier creates a classifier using the given API key and model
// (e.g. "gpt-4o-mini").
func NewOpenAIClassifier(apiKey, model string, opts ...option.RequestOption) *OpenAIClassifier {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIClassifier{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, responseText string) (*Analysis, error) {
	if strings.TrimSpace(responseText) == "" {
		return nil, fmt.Errorf("response text is empty")
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(responseText),
		},
		Temperature:         openai.Float(0.3),
		MaxCompletionTokens: openai.Int(200),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return ParseAnalysis(resp.Choices[0].Message.Content)
}

// ParseAnalysis decodes the model output into an Analysis. Markdown code
// fences around the JSON are tolerated; an unknown status is an error so the
// caller falls back to the neutral result.
func ParseAnalysis(content string) (*Analysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var a Analysis
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return nil, fmt.Errorf("parse analysis JSON: %w", err)
	}
	if !ValidStatus(a.Status) {
		return nil, fmt.Errorf("unknown triage status %q", a.Status)
	}
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 1 {
		a.Confidence = 1
	}
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	return &a, nil
}
