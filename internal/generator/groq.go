package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/motia-studio/engine/internal/models"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultGroqURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultGroqModel = "llama-3.1-8b-instant"

	groqTemperature = 0.7
	groqMaxTokens   = 4000
)

const (
	msgMissingKey  = "GROQ_API_KEY is not configured. Please add it to your .env file. Get your free API key from https://console.groq.com"
	msgInvalidKey  = "Invalid Groq API key. Please check your .env file and get a valid key from https://console.groq.com"
	msgRateLimited = "Groq API rate limit exceeded. Please try again later."
	msgNoContent   = "No content generated from Groq API"
)

// GroqGenerator calls an OpenAI-compatible chat completions endpoint and
// parses the delimiter-framed files out of the answer.
type GroqGenerator struct {
	httpClient *http.Client
	apiKey     string
	url        string
	model      string
}

var _ Generator = (*GroqGenerator)(nil)

type GroqOption func(*GroqGenerator)

func WithHTTPClient(c *http.Client) GroqOption { return func(g *GroqGenerator) { g.httpClient = c } }
func WithURL(url string) GroqOption          { return func(g *GroqGenerator) { g.url = url } }
func WithModel(model string) GroqOption      { return func(g *GroqGenerator) { g.model = model } }

func NewGroqGenerator(apiKey string, opts ...GroqOption) *GroqGenerator {
	g := &GroqGenerator{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		apiKey:     strings.TrimSpace(apiKey),
		url:        DefaultGroqURL,
		model:      DefaultGroqModel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GroqGenerator) Name() string { return "groq" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (g *GroqGenerator) Generate(ctx context.Context, req Request) ([]models.ProjectFile, error) {
	if g.apiKey == "" {
		return nil, appErr.New(appErr.CodeGenerationFailure, msgMissingKey)
	}
	lang := models.ValidateLanguage(string(req.Language))
	req.Language = lang

	text, err := g.complete(ctx, BuildPrompt(req))
	if err != nil {
		return nil, err
	}

	files, usedFallback := ParseOrFallback(text, req.Description, lang)
	if usedFallback {
		preview := text
		if len(preview) > 500 {
			preview = preview[:500]
		}
		logger.L().Warn("completion had no file blocks, using fallback skeleton",
			zap.String("language", string(lang)), zap.String("preview", preview))
	}
	return files, nil
}

// complete sends one chat completion and returns the first choice's text.
func (g *GroqGenerator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: groqTemperature,
		MaxTokens:   groqMaxTokens,
	})
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "encode completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "build completion request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", genericFailure(err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", genericFailure(err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		var ce chatError
		detail := resp.Status
		if json.Unmarshal(raw, &ce) == nil && ce.Error.Message != "" {
			detail = ce.Error.Message
		}
		return "", classify(resp.StatusCode, detail)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", genericFailure("decode response: "+err.Error(), err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", genericFailure(msgNoContent, nil)
	}
	return cr.Choices[0].Message.Content, nil
}

// classify maps a failed response onto the credential, rate limit or
// generic failure message.
func classify(status int, detail string) error {
	lower := strings.ToLower(detail)
	msg := fmt.Sprintf("Groq API error (%d): %s", status, detail)
	switch {
	case status == http.StatusUnauthorized || strings.Contains(lower, "api key"):
		return appErr.New(appErr.CodeGenerationFailure, msgInvalidKey).WithMeta("status", status)
	case status == http.StatusTooManyRequests || strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit"):
		return appErr.New(appErr.CodeGenerationFailure, msgRateLimited).WithMeta("status", status)
	}
	return genericFailure(msg, nil).WithMeta("status", status)
}

func genericFailure(detail string, cause error) *appErr.AppError {
	if detail == "" {
		detail = "Unknown error"
	}
	msg := "Failed to generate code: " + detail + ". Check your GROQ_API_KEY and internet connection."
	return appErr.Wrap(cause, appErr.CodeGenerationFailure, msg)
}
