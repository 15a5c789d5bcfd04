package generator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Agent 负责把口述文本变成经过校验的 Tree。
type Agent struct {
	llm    LLMClient
	logger *zap.Logger
}

// NewAgent 创建 Agent；logger 为 nil 时不输出日志。
func NewAgent(llm LLMClient, logger *zap.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{llm: llm, logger: logger.Named("agent")}, nil
}

// Structure runs one generation. The reply is trusted only after Normalize accepts it.
func (a *Agent) Structure(ctx context.Context, req Request) (Tree, error) {
	prompt, err := Compose(req)
	if err != nil {
		return Tree{}, err
	}

	start := time.Now()
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return Tree{}, err
	}
	tree, err := Normalize(raw)
	if err != nil {
		a.logger.Warn("reply rejected", zap.Int("reply_bytes", len(raw)), zap.Error(err))
		return Tree{}, err
	}
	a.logger.Debug("tree structured",
		zap.String("domain", req.DomainID),
		zap.Int("sections", len(tree.Sections)),
		zap.Duration("elapsed", time.Since(start)))
	return tree, nil
}
