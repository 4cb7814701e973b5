package providers

import (
	"sort"

	"github.com/ncecere/feedback_assistant/internal/config"
)

// Definition captures the metadata required to register a backend builder.
type Definition struct {
	Capability  Capability
	Name        string
	Description string
	Builder     Builder
}

var defaultDefinitions = map[string]Definition{}

// RegisterDefinition stores a backend definition so factories can resolve builders by name.
func RegisterDefinition(def Definition) {
	if def.Builder == nil {
		panic("providers: definition builder required")
	}
	if def.Name == "" || def.Capability == "" {
		panic("providers: definition name and capability required")
	}
	if def.Description == "" {
		def.Description = def.Name
	}
	if defaultDefinitions == nil {
		defaultDefinitions = make(map[string]Definition)
	}
	defaultDefinitions[registryKey(def.Capability, def.Name)] = def
}

// DefaultDefinitions returns the registered definitions sorted by capability then name.
func DefaultDefinitions() []Definition {
	defs := make([]Definition, 0, len(defaultDefinitions))
	for _, def := range defaultDefinitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Capability != defs[j].Capability {
			return defs[i].Capability < defs[j].Capability
		}
		return defs[i].Name < defs[j].Name
	})
	return defs
}

func cloneDefaultBuilders() map[string]Builder {
	builders := make(map[string]Builder, len(defaultDefinitions))
	for key, def := range defaultDefinitions {
		builders[key] = def.Builder
	}
	return builders
}

func registryKey(capability Capability, name string) string {
	return string(capability) + "/" + name
}

// EnsureConfig ensures the config pointer is not nil when builders run.
func EnsureConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		panic("providers: config is required")
	}
	return cfg
}
