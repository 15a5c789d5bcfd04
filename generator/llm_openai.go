package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// It also serves OpenAI-compatible gateways such as DeepSeek via BaseURL.
type OpenAILLM struct {
	Model   string
	Opts    []option.RequestOption
	timeout time.Duration
	logger  *zap.Logger
}

func NewOpenAILLMFromConfig(cfg *LLMSettings, logger *zap.Logger) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// Retrying is the caller's decision.
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAILLM{
		Model:   cfg.Model,
		Opts:    opts,
		timeout: cfg.timeout(),
		logger:  logger.Named("openai"),
	}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	client := openai.NewClient(o.Opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
		openai.UserMessage(prompt.User),
	}

	start := time.Now()
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &BackendStatusError{StatusCode: apiErr.StatusCode, Body: truncate(apiErr.Message, 512)}
		}
		err = classifyTransport(ctx, err)
		o.logger.Warn("generation failed", zap.String("model", o.Model), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: empty choices", ErrMalformedGeneration)
	}
	o.logger.Info("generation completed", zap.String("model", o.Model), zap.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}
