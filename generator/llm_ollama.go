package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3"
	maxReplyBytes      = 8 << 20
)

// OllamaLLM implements LLMClient against an Ollama-style /api/generate endpoint.
type OllamaLLM struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.Logger
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
}

// NewOllamaLLMFromConfig builds a client. A nil httpClient uses a fresh client
// without its own timeout; the per-call deadline governs instead.
func NewOllamaLLMFromConfig(cfg *LLMSettings, httpClient *http.Client, logger *zap.Logger) (*OllamaLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	endpoint := strings.TrimRight(cfg.BaseURL, "/")
	if endpoint == "" {
		endpoint = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaLLM{
		endpoint: endpoint,
		model:    model,
		timeout:  cfg.timeout(),
		client:   httpClient,
		logger:   logger.Named("ollama"),
	}, nil
}

// Complete posts the prompt with streaming disabled and returns the reply text unmodified.
func (o *OllamaLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt.String(),
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		err = classifyTransport(ctx, err)
		o.logger.Warn("generation failed", zap.String("model", o.model), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", classifyTransport(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		o.logger.Warn("generation backend returned failure status",
			zap.String("model", o.model), zap.Int("status", resp.StatusCode))
		return "", &BackendStatusError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)), 512)}
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: undecodable backend envelope: %v", ErrMalformedGeneration, err)
	}
	if out.Response == nil {
		return "", fmt.Errorf("%w: backend envelope has no response field", ErrMalformedGeneration)
	}

	o.logger.Info("generation completed",
		zap.String("model", o.model),
		zap.Int("prompt_len", len(body)),
		zap.Int("reply_len", len(*out.Response)),
		zap.Duration("elapsed", time.Since(start)))
	return *out.Response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
