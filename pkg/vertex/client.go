// Package vertex wraps the Google GenAI SDK behind a narrow client
// interface with the module's own request and response types.
package vertex

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/conforme/conforme-cli/internal/resilience"
)

// Client defines the generative-model operations used by the evaluator.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Config selects the backend. ProjectID plus Location targets Vertex AI
// (Application Default Credentials); APIKey targets the Gemini API directly.
type Config struct {
	ProjectID string
	Location  string
	APIKey    string
}

// Part is one piece of request content: either text or raw bytes with a
// MIME type (images, PDFs).
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// GenerateRequest is our own request type for Generate. Pointer fields are
// omitted from the request when nil.
type GenerateRequest struct {
	Model           string
	System          string
	Parts           []Part
	Temperature     *float32
	TopP            *float32
	MaxOutputTokens int32
	Seed            *int32
	StopSequences   []string
}

// GenerateResponse is our own response type for Generate.
type GenerateResponse struct {
	Text         string
	FinishReason string
}

// sdkClient implements Client using google.golang.org/genai.
type sdkClient struct {
	client *genai.Client
}

// NewClient creates a generative client for the configured backend.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	cc := &genai.ClientConfig{}
	if cfg.ProjectID != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.ProjectID
		cc.Location = cfg.Location
	} else {
		cc.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "vertex: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Data != nil {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
		} else {
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		Seed:            req.Seed,
		MaxOutputTokens: req.MaxOutputTokens,
		StopSequences:   req.StopSequences,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, wrapGenerateError(err)
	}

	out := &GenerateResponse{Text: resp.Text()}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	return out, nil
}

// wrapGenerateError preserves the SDK's retryable status codes so the
// retry layer sees rate limits and overloads as transient.
func wrapGenerateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.Code) {
		return resilience.NewTransientError(eris.Wrap(err, "vertex: generate content"), apiErr.Code)
	}
	return eris.Wrap(err, "vertex: generate content")
}
