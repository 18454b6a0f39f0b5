// Package gemini provides a Google Generative Language API client
// implementing both model boundaries of the record keeper: the vision call
// used by the extraction pipeline (extraction.VisionModel) and the text call
// used by the summary pipeline (summary.TextModel).
//
// The client carries no retry logic; failed calls surface as errors and a
// human re-triggers from the UI.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hengadev/medikeep"
)

const (
	// DefaultBaseURL is the production Generative Language endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel leans deterministic and supports image input.
	DefaultModel = "gemini-2.5-flash"

	// extractionTemperature keeps structured extraction stable across runs.
	extractionTemperature = 0.1
)

// Config holds the client configuration.
type Config struct {
	// APIKey authenticates against the Generative Language API. Required.
	APIKey string

	// Model overrides DefaultModel.
	Model string

	// BaseURL overrides DefaultBaseURL (tests point it at a local server).
	BaseURL string

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
}

// Client calls the Generative Language REST API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// New creates a client. The API key is required; everything else defaults.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
	}, nil
}

// Request/response shapes for generateContent. Only the fields this client
// reads or writes are declared.
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnalyzeImage sends a document photo plus the instruction prompt and
// returns the model's raw text reply. The generation config leans
// deterministic and requests a JSON response MIME type; schema compliance is
// still not guaranteed, which is the extraction parser's problem.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, instruction string) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: http.DetectContentType(image),
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: instruction},
			},
		}},
		GenerationConfig: &generationConfig{
			Temperature:      extractionTemperature,
			ResponseMimeType: "application/json",
		},
	}
	return c.generate(ctx, req)
}

// GenerateText sends a plain text prompt and returns the model's reply.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, payload generateRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: failed to decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("gemini: API error %d: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: %w", medikeep.ErrEmptyModelReply)
	}

	var text string
	for _, p := range out.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}
