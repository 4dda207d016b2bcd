// Package llm answers free-form questions about extracted engineering
// documents and pulls single fields out of them with a generative model.
package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
)

// DefaultModel is the Gemini model used when none is configured
const DefaultModel = "gemini-1.5-flash"

// Model generates a text answer for a prompt
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VertexModel is a Model backed by Vertex AI Gemini
type VertexModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewVertexModel connects to Vertex AI in project/region
func NewVertexModel(ctx context.Context, projectID, region, modelName string) (*VertexModel, error) {
	const op = "connect vertex ai"

	if projectID == "" || region == "" {
		return nil, errors.New(errors.KindInvalidInput, op, "project and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, errors.Wrap(errors.KindUpstream, op, fmt.Errorf("genai.NewClient: %w", err))
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	return &VertexModel{client: client, model: model}, nil
}

// Generate sends prompt to the model and returns the concatenated text parts
func (m *VertexModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.Wrap(errors.KindUpstream, "generate content", err)
	}
	return responseText(resp), nil
}

// Close releases the underlying client
func (m *VertexModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
