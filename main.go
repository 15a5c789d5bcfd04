package main

import (
	"context"
	"fmt"
	"os"

	"auto_spec_builder/attachments"
	"auto_spec_builder/config"
	"auto_spec_builder/generator"
	"auto_spec_builder/pipeline"
	"auto_spec_builder/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "auto_spec_builder",
	Short: "Turn dictated customer requirements into structured specifications",
	Long: `auto_spec_builder sends free-form customer text to a language model, validates
the structured reply, stores it as a specification of sections and items with
time estimates, and exports it as a Word or HTML document.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (.json, .yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(lc config.LoggingConfig, debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		level, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func buildLLM(cfg config.Config, logger *zap.Logger) (generator.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider in config")
	}
	timeout, err := cfg.LLM.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  timeout,
	}
	switch cfg.LLM.Provider {
	case "ollama":
		return generator.NewOllamaLLMFromConfig(settings, nil, logger)
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings, logger)
	case "deepseek":
		// DeepSeek speaks the OpenAI protocol but has no default endpoint.
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings, logger)
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

// app holds the long-lived components every command builds from config.
type app struct {
	store    *store.Store
	files    *attachments.FileStore
	pipeline *pipeline.Pipeline
}

func openApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	llm, err := buildLLM(cfg, logger)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(llm, logger)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}
	files, err := attachments.NewFileStore(cfg.UploadDir, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	p, err := pipeline.New(agent, st, files, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &app{store: st, files: files, pipeline: p}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
