package factory

import (
	"strings"
	"testing"

	"github.com/ivmalkov/lworch-ai/pkg/config"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

func TestNewLLMProvider(t *testing.T) {
	for _, provider := range []string{"zai", "openai", "deepseek"} {
		t.Run(provider, func(t *testing.T) {
			p, err := NewLLMProvider(config.ModelDef{
				Provider:  provider,
				ModelName: "test-model",
				APIKey:    "test-key",
			}, utils.NopLogger())
			if err != nil {
				t.Fatalf("NewLLMProvider() error = %v", err)
			}
			if p == nil {
				t.Fatal("expected non-nil provider")
			}
		})
	}
}

func TestNewLLMProviderUnknown(t *testing.T) {
	_, err := NewLLMProvider(config.ModelDef{Provider: "anthropic"}, utils.NopLogger())
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "unknown provider type: anthropic") {
		t.Errorf("unexpected error: %v", err)
	}
}
