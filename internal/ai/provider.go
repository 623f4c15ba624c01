package ai

import (
	"context"
	"fmt"
)

// Backend names selectable through configuration.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendClaude = "claude"
	BackendOllama = "ollama"
	BackendCohere = "cohere"
)

// Request is one generative-analysis invocation: the assembled prompt plus
// an optional inline JPEG payload of the commented region.
type Request struct {
	Prompt    string
	ImageJPEG []byte
}

// Provider is the capability a generative backend exposes to the pipeline.
type Provider interface {
	// Generate produces the reply text for one comment. It may fail
	// transiently; callers wrap it in the retry guard.
	Generate(ctx context.Context, req Request) (string, error)

	// Name returns the backend's configured name.
	Name() string
}

// Factory creates providers by configured backend name.
type Factory interface {
	Create(ctx context.Context, name string, config map[string]interface{}) (Provider, error)
}

// Errors are classified at construction time so a misconfigured backend
// fails the batch preconditions instead of surfacing mid-run.
var (
	ErrProviderNotFound = providerError("ai backend not found")
	ErrNotImplemented   = providerError("ai backend not implemented")
)

type providerError string

func (e providerError) Error() string { return string(e) }

// Constructor builds a configured provider for one backend.
type Constructor func(ctx context.Context, config map[string]interface{}) (Provider, error)

// DefaultFactory resolves backend names against registered constructors.
// Names that are recognized but have no registered constructor yield
// ErrNotImplemented; unknown names yield ErrProviderNotFound.
type DefaultFactory struct {
	constructors map[string]Constructor
}

func NewDefaultFactory() *DefaultFactory {
	return &DefaultFactory{constructors: make(map[string]Constructor)}
}

// Register installs a constructor for a backend name.
func (f *DefaultFactory) Register(name string, ctor Constructor) {
	f.constructors[name] = ctor
}

// Create builds the named backend with its configuration.
func (f *DefaultFactory) Create(ctx context.Context, name string, config map[string]interface{}) (Provider, error) {
	ctor, ok := f.constructors[name]
	if !ok {
		if knownBackend(name) {
			return nil, fmt.Errorf("backend %q: %w", name, ErrNotImplemented)
		}
		return nil, fmt.Errorf("backend %q: %w", name, ErrProviderNotFound)
	}
	return ctor(ctx, config)
}

func knownBackend(name string) bool {
	switch name {
	case BackendOpenAI, BackendGemini, BackendClaude, BackendOllama, BackendCohere:
		return true
	}
	return false
}
