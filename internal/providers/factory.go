package providers

import (
	"context"
	"fmt"

	"github.com/ncecere/feedback_assistant/internal/config"
)

// Builder constructs a backend for one capability from configuration.
type Builder func(ctx context.Context, cfg *config.Config) (Backend, error)

// Factory builds backends from configuration using a registry of builders.
type Factory struct {
	cfg      *config.Config
	builders map[string]Builder
}

// NewFactory creates a factory with the default backend registry.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg, builders: cloneDefaultBuilders()}
}

// Register allows tests or callers to override backend builders.
func (f *Factory) Register(capability Capability, name string, builder Builder) {
	if f.builders == nil {
		f.builders = make(map[string]Builder)
	}
	f.builders[registryKey(capability, name)] = builder
}

// Build instantiates the configured backend for a capability.
func (f *Factory) Build(ctx context.Context, capability Capability) (Backend, error) {
	cfg := EnsureConfig(f.cfg)
	name := f.providerFor(capability)
	builder, ok := f.builders[registryKey(capability, name)]
	if !ok {
		return Backend{}, fmt.Errorf("%s: provider %q unsupported", capability, name)
	}
	backend, err := builder(ctx, cfg)
	if err != nil {
		return Backend{}, fmt.Errorf("%s: %w", capability, err)
	}
	backend.Capability = capability
	if backend.Provider == "" {
		backend.Provider = name
	}
	return backend, nil
}

func (f *Factory) providerFor(capability Capability) string {
	switch capability {
	case CapabilitySentiment:
		return f.cfg.Sentiment.Provider
	case CapabilityGeneration:
		return f.cfg.Generation.Provider
	case CapabilitySpeech:
		return f.cfg.Speech.Provider
	default:
		return ""
	}
}
