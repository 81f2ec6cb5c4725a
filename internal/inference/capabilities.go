package inference

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/architecturereview/internal/errs"
)

// Capability is the input format a model family accepts for a page.
type Capability string

const (
	// CapabilityNativeDocument models ingest a paginated PDF directly.
	CapabilityNativeDocument Capability = "nativeDocument"
	// CapabilityNativeImage models need the page rasterized first.
	CapabilityNativeImage Capability = "nativeImage"
	// CapabilityOpenAIStyle models need a raster sent as an image_url part
	// in a chat-completion envelope.
	CapabilityOpenAIStyle Capability = "openAIStyle"
)

// RequiresRaster reports whether pages must be converted to images before
// models of this capability can read them.
func (c Capability) RequiresRaster() bool {
	return c == CapabilityNativeImage || c == CapabilityOpenAIStyle
}

// Provider identifies the API serving a model.
type Provider string

const (
	ProviderVertex    Provider = "vertex"
	ProviderGeminiAPI Provider = "geminiApi"
	ProviderOpenAI    Provider = "openai"
)

// ModelSpec maps a model identifier pattern to its capability. A Pattern
// ending in "*" matches by prefix; otherwise it must match exactly.
type ModelSpec struct {
	Pattern    string
	Capability Capability
	Provider   Provider
}

func (s ModelSpec) matches(modelID string) bool {
	if prefix, ok := strings.CutSuffix(s.Pattern, "*"); ok {
		return strings.HasPrefix(modelID, prefix)
	}
	return s.Pattern == modelID
}

// Catalog is the capability lookup table.
type Catalog struct {
	specs []ModelSpec
}

// NewCatalog returns a catalog over specs.
func NewCatalog(specs ...ModelSpec) *Catalog {
	return &Catalog{specs: specs}
}

// DefaultCatalog covers the model families this service is deployed with.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		ModelSpec{Pattern: "gemini-*", Capability: CapabilityNativeDocument, Provider: ProviderVertex},
		ModelSpec{Pattern: "gemma-*", Capability: CapabilityNativeImage, Provider: ProviderGeminiAPI},
		ModelSpec{Pattern: "gpt-*", Capability: CapabilityOpenAIStyle, Provider: ProviderOpenAI},
		ModelSpec{Pattern: "o4-*", Capability: CapabilityOpenAIStyle, Provider: ProviderOpenAI},
	)
}

// Lookup resolves modelID. Exact patterns win over prefixes; among prefixes
// the longest wins.
func (c *Catalog) Lookup(modelID string) (ModelSpec, error) {
	if strings.TrimSpace(modelID) == "" {
		return ModelSpec{}, fmt.Errorf("%w: empty model id", errs.ErrUnknownModel)
	}
	var best ModelSpec
	found := false
	for _, s := range c.specs {
		if !s.matches(modelID) {
			continue
		}
		if s.Pattern == modelID {
			return s, nil
		}
		if !found || len(s.Pattern) > len(best.Pattern) {
			best, found = s, true
		}
	}
	if !found {
		return ModelSpec{}, fmt.Errorf("%w: %s", errs.ErrUnknownModel, modelID)
	}
	return best, nil
}

// FallbackPolicy lists, per capability, the models to try in order when a
// page cannot be rasterized for a model of that capability.
type FallbackPolicy struct {
	chains map[Capability][]string
}

// NewFallbackPolicy builds a policy that falls back to models for every
// raster-requiring capability.
func NewFallbackPolicy(models ...string) FallbackPolicy {
	return FallbackPolicy{chains: map[Capability][]string{
		CapabilityNativeImage: models,
		CapabilityOpenAIStyle: models,
	}}
}

// WithChain returns a copy of p with the chain for c replaced.
func (p FallbackPolicy) WithChain(c Capability, models ...string) FallbackPolicy {
	chains := make(map[Capability][]string, len(p.chains)+1)
	for k, v := range p.chains {
		chains[k] = v
	}
	chains[c] = models
	return FallbackPolicy{chains: chains}
}

// Candidates returns the fallback chain for c. Only models that can ingest a
// document natively are returned, since the fallback exists for pages that
// could not be turned into images.
func (p FallbackPolicy) Candidates(c Capability, catalog *Catalog) []string {
	var out []string
	for _, m := range p.chains[c] {
		spec, err := catalog.Lookup(m)
		if err != nil || spec.Capability != CapabilityNativeDocument {
			continue
		}
		out = append(out, m)
	}
	return out
}
