package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

// GeminiConfig selects between the Gemini Developer API (APIKey) and
// Vertex AI (Project/Location).
type GeminiConfig struct {
	APIKey    string
	Model     string
	UseVertex bool
	Project   string
	Location  string
}

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

var _ domain.Generator = (*GeminiClient)(nil)

// NewGeminiClient creates a domain.Generator backed by Gemini.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	if cfg.UseVertex {
		if cfg.Project == "" || cfg.Location == "" {
			return nil, errors.New("gemini: project and location are required for Vertex AI")
		}
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	} else {
		if cfg.APIKey == "" {
			return nil, errors.New("gemini: api key is required")
		}
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiClient{
		client:    client,
		modelName: model,
	}, nil
}

// Generate implements domain.Generator. The image, when present, goes
// before the text part.
func (g *GeminiClient) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	var parts []*genai.Part
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image, mime))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: req.MaxTokens,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}
