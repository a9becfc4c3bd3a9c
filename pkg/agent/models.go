package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// DefaultProvider is used when an LLMConfig names no provider.
const DefaultProvider = "openai"

// ModelSource hands out chat models for a connection descriptor.
type ModelSource interface {
	Model(ctx context.Context, cfg *domain.LLMConfig) (model.BaseChatModel, error)
}

// Builder constructs a chat model for one provider.
type Builder func(ctx context.Context, cfg domain.LLMConfig) (model.BaseChatModel, error)

// Providers builds eino-ext chat models by provider name and caches them per config.
// Safe for concurrent use.
type Providers struct {
	mu       sync.Mutex
	builders map[string]Builder
	cache    map[domain.LLMConfig]model.BaseChatModel
}

// NewProviders returns a source with openai, ollama, deepseek and ark registered.
func NewProviders() *Providers {
	p := &Providers{
		builders: make(map[string]Builder),
		cache:    make(map[domain.LLMConfig]model.BaseChatModel),
	}
	p.Register("openai", buildOpenAI)
	p.Register("ollama", buildOllama)
	p.Register("deepseek", buildDeepSeek)
	p.Register("ark", buildArk)
	return p
}

// Register adds or replaces the builder for a provider.
func (p *Providers) Register(provider string, b Builder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builders[strings.ToLower(provider)] = b
}

// Names lists the registered providers.
func (p *Providers) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.builders))
	for name := range p.builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Model returns the cached model for cfg, building it on first use.
func (p *Providers) Model(ctx context.Context, cfg *domain.LLMConfig) (model.BaseChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no LLM configuration")
	}
	key := *cfg
	key.Provider = strings.ToLower(key.Provider)
	if key.Provider == "" {
		key.Provider = DefaultProvider
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.cache[key]; ok {
		return m, nil
	}
	build, ok := p.builders[key.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q", key.Provider)
	}
	m, err := build(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s chat model: %w", key.Provider, err)
	}
	p.cache[key] = m
	return m, nil
}

func buildOpenAI(ctx context.Context, cfg domain.LLMConfig) (model.BaseChatModel, error) {
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
}

func buildOllama(ctx context.Context, cfg domain.LLMConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
	})
}

func buildDeepSeek(ctx context.Context, cfg domain.LLMConfig) (model.BaseChatModel, error) {
	return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
}

func buildArk(ctx context.Context, cfg domain.LLMConfig) (model.BaseChatModel, error) {
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
}
