package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

func TestDuration(t *testing.T) {
	t.Setenv("PILLAR_TIMEOUT", "")
	if d, err := Duration("PILLAR_TIMEOUT", 5*time.Minute); err != nil || d != 5*time.Minute {
		t.Errorf("unset: got %v, %v", d, err)
	}
	t.Setenv("PILLAR_TIMEOUT", "90s")
	if d, err := Duration("PILLAR_TIMEOUT", time.Minute); err != nil || d != 90*time.Second {
		t.Errorf("90s: got %v, %v", d, err)
	}
	for _, bad := range []string{"soon", "-1m", "0s"} {
		t.Setenv("PILLAR_TIMEOUT", bad)
		if _, err := Duration("PILLAR_TIMEOUT", time.Minute); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("%q: expected ErrValidation, got %v", bad, err)
		}
	}
}

func TestIntBoolLanguage(t *testing.T) {
	t.Setenv("RASTER_DPI", "300")
	if n, err := Int("RASTER_DPI", 150); err != nil || n != 300 {
		t.Errorf("Int = %d, %v", n, err)
	}
	t.Setenv("RASTER_DPI", "high")
	if _, err := Int("RASTER_DPI", 150); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	t.Setenv("EXECUTIVE_SUMMARY_ENABLED", "false")
	if b, err := Bool("EXECUTIVE_SUMMARY_ENABLED", true); err != nil || b {
		t.Errorf("Bool = %v, %v", b, err)
	}
	t.Setenv("EXECUTIVE_SUMMARY_ENABLED", "maybe")
	if _, err := Bool("EXECUTIVE_SUMMARY_ENABLED", true); err == nil {
		t.Error("expected error for non-boolean")
	}

	t.Setenv("DEFAULT_LANGUAGE", "KO")
	if l, err := Language("DEFAULT_LANGUAGE", models.LanguageEnglish); err != nil || l != models.LanguageKorean {
		t.Errorf("Language = %q, %v", l, err)
	}
	t.Setenv("DEFAULT_LANGUAGE", "fr")
	if _, err := Language("DEFAULT_LANGUAGE", models.LanguageEnglish); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestLoadPillarPrompts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	doc := `pillars:
  security:
    systemPrompt: |
      You are a zero-trust reviewer.
  reliability:
    systemPrompt: ""
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	prompts, err := LoadPillarPrompts(path)
	if err != nil {
		t.Fatalf("LoadPillarPrompts: %v", err)
	}
	if len(prompts) != 1 || prompts[models.PillarSecurity] != "You are a zero-trust reviewer." {
		t.Errorf("prompts = %#v", prompts)
	}

	if p, err := LoadPillarPrompts(""); err != nil || p != nil {
		t.Errorf("empty path: %v, %v", p, err)
	}
	if _, err := LoadPillarPrompts(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParsePillarPrompts_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown pillar": "pillars:\n  usability:\n    systemPrompt: x\n",
		"not yaml":       "pillars: [unclosed",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePillarPrompts([]byte(doc)); !errors.Is(err, errs.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestLoadPricing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	doc := `models:
  gemini-2.5-pro:
    input_per_1k: 0.002
    output_per_1k: 0.02
  claude-sonnet:
    input_per_1k: 0.003
    output_per_1k: 0.015
default:
  input_per_1k: 0.01
  output_per_1k: 0.01
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	base := cost.DefaultPricing()
	p, err := LoadPricing(path, base)
	if err != nil {
		t.Fatalf("LoadPricing: %v", err)
	}
	if got := p.PriceFor("gemini-2.5-pro").InputPer1K; got != 0.002 {
		t.Errorf("overridden price = %v", got)
	}
	if got := p.PriceFor("gemini-2.5-flash"); got != base.Models["gemini-2.5-flash"] {
		t.Errorf("untouched price = %+v", got)
	}
	if got := p.PriceFor("unknown-model").InputPer1K; got != 0.01 {
		t.Errorf("default price = %v", got)
	}
	if base.Models["gemini-2.5-pro"].InputPer1K != 0.00125 {
		t.Error("base pricing was mutated")
	}

	if err := os.WriteFile(path, []byte("models:\n  x:\n    input_per_1k: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPricing(path, base); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
