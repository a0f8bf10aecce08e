package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/PabloGalante/guardian-agent/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/guardian-agent/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/guardian-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/guardian-agent/internal/config"
	"github.com/PabloGalante/guardian-agent/internal/domain"
	"github.com/PabloGalante/guardian-agent/internal/observability"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// initLogger builds the process logger and installs it globally.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	observability.SetLogger(logger)
	return logger, nil
}

// buildGenerator picks the model backend named by llm.provider.
func buildGenerator(ctx context.Context, cfg *config.Config) (domain.Generator, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		gen, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			UseVertex: cfg.LLM.UseVertex,
			Project:   cfg.LLM.GCPProject,
			Location:  cfg.LLM.GCPLocation,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   openAIModel(cfg.LLM.Model),
		}), nil
	case config.ProviderMock:
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// openAIModel drops the Gemini default so the OpenAI client picks its own.
func openAIModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return ""
	}
	return model
}

// buildIncidentStore returns the archive and a close func.
func buildIncidentStore(ctx context.Context, cfg *config.Config) (domain.IncidentStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case "firestore":
		store, err := firestorestore.NewStore(ctx, cfg.Storage.GCPProject, cfg.Storage.Collection,
			option.WithUserAgent("guardian-api/"+version))
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return memstore.NewIncidentStore(), noop, nil
	}
}
