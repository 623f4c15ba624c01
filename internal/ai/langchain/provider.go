package langchain

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/canvasreview/internal/ai"
)

// Provider implements ai.Provider on top of langchaingo's model
// abstractions, so every backend shares one multimodal invocation path.
type Provider struct {
	llm         llms.Model
	name        string
	model       string
	temperature float64
	maxTokens   int
}

// Options carries the per-backend configuration extracted from the config
// map. Zero values fall back to backend defaults.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// OptionsFromMap pulls typed options out of the loosely-typed config block.
func OptionsFromMap(config map[string]interface{}) Options {
	opts := Options{Temperature: 0.2}
	if v, ok := config["api_key"].(string); ok {
		opts.APIKey = v
	}
	if v, ok := config["base_url"].(string); ok {
		opts.BaseURL = v
	}
	if v, ok := config["model"].(string); ok {
		opts.Model = v
	}
	if v, ok := config["temperature"].(float64); ok {
		opts.Temperature = v
	}
	switch v := config["max_tokens"].(type) {
	case int:
		opts.MaxTokens = v
	case int64:
		opts.MaxTokens = int(v)
	case float64:
		opts.MaxTokens = int(v)
	}
	return opts
}

// Register installs constructors for every backend this package supports
// into the factory. Backends the factory knows by name but that are not
// registered here surface ai.ErrNotImplemented at construction.
func Register(factory *ai.DefaultFactory) {
	factory.Register(ai.BackendOpenAI, func(ctx context.Context, config map[string]interface{}) (ai.Provider, error) {
		return New(ctx, ai.BackendOpenAI, OptionsFromMap(config))
	})
	factory.Register(ai.BackendGemini, func(ctx context.Context, config map[string]interface{}) (ai.Provider, error) {
		return New(ctx, ai.BackendGemini, OptionsFromMap(config))
	})
	factory.Register(ai.BackendClaude, func(ctx context.Context, config map[string]interface{}) (ai.Provider, error) {
		return New(ctx, ai.BackendClaude, OptionsFromMap(config))
	})
	factory.Register(ai.BackendOllama, func(ctx context.Context, config map[string]interface{}) (ai.Provider, error) {
		return New(ctx, ai.BackendOllama, OptionsFromMap(config))
	})
}

// New creates a provider for the named backend.
func New(ctx context.Context, name string, opts Options) (*Provider, error) {
	model, err := createModel(ctx, name, opts)
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", name, err)
	}
	return &Provider{
		llm:         model,
		name:        name,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

func createModel(ctx context.Context, name string, opts Options) (llms.Model, error) {
	switch name {
	case ai.BackendOpenAI:
		o := []openai.Option{openai.WithToken(opts.APIKey)}
		if opts.Model != "" {
			o = append(o, openai.WithModel(opts.Model))
		}
		if opts.BaseURL != "" {
			o = append(o, openai.WithBaseURL(opts.BaseURL))
		}
		return openai.New(o...)
	case ai.BackendGemini:
		return googleai.New(ctx, googleai.WithAPIKey(opts.APIKey))
	case ai.BackendClaude:
		o := []anthropic.Option{anthropic.WithToken(opts.APIKey)}
		if opts.Model != "" {
			o = append(o, anthropic.WithModel(opts.Model))
		}
		return anthropic.New(o...)
	case ai.BackendOllama:
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		o := []ollama.Option{ollama.WithServerURL(baseURL)}
		if opts.Model != "" {
			o = append(o, ollama.WithModel(opts.Model))
		}
		return ollama.New(o...)
	default:
		return nil, fmt.Errorf("backend %q: %w", name, ai.ErrNotImplemented)
	}
}

// Generate runs one multimodal completion. The image, when present, rides
// along as an inline binary part next to the prompt text.
func (p *Provider) Generate(ctx context.Context, req ai.Request) (string, error) {
	parts := []llms.ContentPart{llms.TextPart(req.Prompt)}
	if len(req.ImageJPEG) > 0 {
		parts = append(parts, llms.BinaryPart("image/jpeg", req.ImageJPEG))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(p.temperature)}
	if p.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(p.maxTokens))
	}
	if p.model != "" {
		callOpts = append(callOpts, llms.WithModel(p.model))
	}

	resp, err := p.llm.GenerateContent(ctx, []llms.MessageContent{
		{Role: schema.ChatMessageTypeHuman, Parts: parts},
	}, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("backend %s returned no choices", p.name)
	}

	raw := resp.Choices[0].Content
	reply := ExtractReply(raw)
	if reply == "" {
		log.Debug().Str("backend", p.name).Int("raw_len", len(raw)).
			Msg("model response had no usable reply text")
		return "", fmt.Errorf("backend %s returned empty reply", p.name)
	}
	return reply, nil
}

// Name returns the configured backend name.
func (p *Provider) Name() string { return p.name }
