// Package config reads typed settings from the environment and the optional
// YAML pillar prompt library.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/gcp"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

// Duration reads a Go duration ("90s", "5m") from key.
func Duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errs.Validation("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}

// Int reads a positive integer from key.
func Int(key string, fallback int) (int, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errs.Validation("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

// Bool reads a boolean ("true", "0", ...) from key.
func Bool(key string, fallback bool) (bool, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errs.Validation("%s must be a boolean, got %q", key, raw)
	}
	return b, nil
}

// Language reads a review language code from key. Only "en" and "ko" are
// accepted.
func Language(key string, fallback models.Language) (models.Language, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	lang := models.ParseLanguage(raw, "")
	if lang == "" {
		return "", errs.Validation("%s must be en or ko, got %q", key, raw)
	}
	return lang, nil
}

// PromptLibrary is the YAML file layout of PILLAR_PROMPTS_PATH:
//
//	pillars:
//	  security:
//	    systemPrompt: |
//	      You are ...
type PromptLibrary struct {
	Pillars map[string]PillarPrompt `yaml:"pillars"`
}

type PillarPrompt struct {
	SystemPrompt string `yaml:"systemPrompt"`
}

// LoadPillarPrompts reads per-pillar system prompt overrides from path. An
// empty path yields no overrides. Unknown pillar names are rejected.
func LoadPillarPrompts(path string) (map[models.PillarName]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pillar prompt library: %w", err)
	}
	return ParsePillarPrompts(data)
}

// ParsePillarPrompts decodes a prompt library document.
func ParsePillarPrompts(data []byte) (map[models.PillarName]string, error) {
	var lib PromptLibrary
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, errs.Validation("invalid pillar prompt library: %v", err)
	}
	out := make(map[models.PillarName]string, len(lib.Pillars))
	for name, p := range lib.Pillars {
		pillar := models.PillarName(name)
		if !pillar.Valid() {
			return nil, errs.Validation("pillar prompt library names unknown pillar %q", name)
		}
		if prompt := strings.TrimSpace(p.SystemPrompt); prompt != "" {
			out[pillar] = prompt
		}
	}
	return out, nil
}

type pricingFile struct {
	Models  map[string]cost.ModelPrice `yaml:"models"`
	Default *cost.ModelPrice           `yaml:"default"`
}

// LoadPricing overlays the model prices in the YAML file at path onto base.
// An empty path returns base unchanged.
func LoadPricing(path string, base cost.Pricing) (cost.Pricing, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read pricing file: %w", err)
	}
	var file pricingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, errs.Validation("invalid pricing file: %v", err)
	}
	out := base
	out.Models = make(map[string]cost.ModelPrice, len(base.Models)+len(file.Models))
	for id, p := range base.Models {
		out.Models[id] = p
	}
	for id, p := range file.Models {
		if p.InputPer1K < 0 || p.OutputPer1K < 0 || p.PerImage < 0 {
			return base, errs.Validation("negative price for model %q", id)
		}
		out.Models[id] = p
	}
	if file.Default != nil {
		out.DefaultModel = *file.Default
	}
	return out, nil
}
