package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
)

const (
	defaultModel = "gemini-2.0-flash"
	maxTokens    = 2048
)

// Client talks to the Gemini API through the google genai SDK.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a new Gemini completion client. baseURL is optional and
// points the SDK at a proxy or a test server.
func NewClient(ctx context.Context, apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", ai.ErrAuth)
	}
	if model == "" {
		model = defaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = strings.TrimRight(baseURL, "/") + "/"
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Complete(ctx context.Context, p ai.Prompt) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: maxTokens,
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(p.User), cfg)
	if err != nil {
		return "", classify(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyReply
	}
	return text, nil
}

// classify maps genai API errors onto the ai sentinels by status code.
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: GenAI generate failed: %w", ai.ErrUpstream, err)
	}

	switch apiErr.Code {
	case 401, 403:
		return fmt.Errorf("%w: %w", ai.ErrAuth, err)
	case 429:
		return fmt.Errorf("%w: %w", ai.ErrQuotaExceeded, err)
	default:
		return fmt.Errorf("%w: GenAI generate failed: %w", ai.ErrUpstream, err)
	}
}
