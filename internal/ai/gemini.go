package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/bazaar-sniper/pkg/httpclient"
)

// Gemini calls the Generative Language REST API with JSON-mode output.
type Gemini struct {
	client  httpclient.Client
	baseURL string
	apiKey  string
}

var _ Backend = (*Gemini)(nil)

// NewGemini builds a backend. A missing key is a setup failure.
func NewGemini(baseURL, apiKey string, client httpclient.Client) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is missing")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("gemini base url is missing")
	}
	if client == nil {
		return nil, errors.New("gemini http client is nil")
	}
	return &Gemini{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends req to model and returns the JSON text of the first candidate.
func (g *Gemini) Generate(ctx context.Context, model string, req Request) ([]byte, error) {
	if req.Schema == nil {
		return nil, fmt.Errorf("request %q has no response schema", req.SchemaName)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(model))
	resp, err := g.client.Post(ctx, endpoint, map[string]string{
		"Content-Type":   "application/json",
		"x-goog-api-key": g.apiKey,
	}, body)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, decodeAPIError(resp.StatusCode(), resp.Body())
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrSchema, err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)", ErrSchema, out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrSchema)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("%w: empty candidate (finish reason %s)", ErrSchema, out.Candidates[0].FinishReason)
	}
	return []byte(text), nil
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Message: snippet(body)}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Status = env.Error.Status
	}
	return apiErr
}

func snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
