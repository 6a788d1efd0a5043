package tutorcast

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/tutorcast/pkg/adapters/tts"
	"github.com/harunnryd/tutorcast/pkg/configutil"
	"github.com/harunnryd/tutorcast/pkg/llm"
	"github.com/harunnryd/tutorcast/pkg/providers/bedrock"
	"github.com/harunnryd/tutorcast/pkg/providers/deepgram"
	"github.com/harunnryd/tutorcast/pkg/providers/elevenlabs"
	"github.com/harunnryd/tutorcast/pkg/providers/mock"
	"github.com/harunnryd/tutorcast/pkg/providers/openai"
)

type LLMFactory func(ctx context.Context, cfg Config) (llm.Adapter, error)
type TTSFactory func(ctx context.Context, cfg Config) (tts.Synthesizer, error)

type ProviderRegistry struct {
	llm map[string]LLMFactory
	tts map[string]TTSFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		llm: make(map[string]LLMFactory),
		tts: make(map[string]TTSFactory),
	}
}

func (r *ProviderRegistry) RegisterLLM(name string, factory LLMFactory) {
	r.llm[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterTTS(name string, factory TTSFactory) {
	r.tts[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildLLM(ctx context.Context, provider string, cfg Config) (llm.Adapter, error) {
	fn := r.llm[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", provider)
	}
	return fn(ctx, cfg)
}

func (r *ProviderRegistry) BuildTTS(ctx context.Context, provider string, cfg Config) (tts.Synthesizer, error) {
	fn := r.tts[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("tts provider not registered: %s", provider)
	}
	return fn(ctx, cfg)
}

// DefaultRegistry returns a registry with every built-in vendor wired.
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()

	r.RegisterLLM("openai", func(ctx context.Context, cfg Config) (llm.Adapter, error) {
		if err := validateSettings("vendors.llm.settings", cfg.Vendors.LLM.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model"},
		}); err != nil {
			return nil, err
		}
		var settings struct {
			APIKey string `mapstructure:"api_key"`
			Model  string `mapstructure:"model"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.LLM.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.llm.settings.api_key"); err != nil {
			return nil, err
		}
		if settings.Model == "" {
			settings.Model = "gpt-4o-mini"
		}
		return openai.NewAdapter(settings.APIKey, settings.Model), nil
	})

	r.RegisterLLM("bedrock", func(ctx context.Context, cfg Config) (llm.Adapter, error) {
		if err := validateSettings("vendors.llm.settings", cfg.Vendors.LLM.Settings, configutil.Schema{
			Required: []string{"model"},
			Optional: []string{"region", "max_tokens"},
		}); err != nil {
			return nil, err
		}
		var settings struct {
			Model     string `mapstructure:"model"`
			Region    string `mapstructure:"region"`
			MaxTokens int    `mapstructure:"max_tokens"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.LLM.Settings, &settings); err != nil {
			return nil, err
		}
		return bedrock.NewAdapter(ctx, bedrock.Config{
			Model:     settings.Model,
			Region:    settings.Region,
			MaxTokens: settings.MaxTokens,
		})
	})

	r.RegisterLLM("mock", func(ctx context.Context, cfg Config) (llm.Adapter, error) {
		var settings struct {
			ResponseText string   `mapstructure:"response_text"`
			Responses    []string `mapstructure:"responses"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.LLM.Settings, &settings); err != nil {
			return nil, err
		}
		return mock.NewLLMAdapter(mock.LLMConfig{
			ResponseText: settings.ResponseText,
			Responses:    settings.Responses,
		}), nil
	})

	r.RegisterTTS("elevenlabs", func(ctx context.Context, cfg Config) (tts.Synthesizer, error) {
		if err := validateSettings("vendors.tts.settings", cfg.Vendors.TTS.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model_id"},
		}); err != nil {
			return nil, err
		}
		var settings struct {
			APIKey  string `mapstructure:"api_key"`
			ModelID string `mapstructure:"model_id"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.TTS.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.tts.settings.api_key"); err != nil {
			return nil, err
		}
		return elevenlabs.New(elevenlabs.Config{
			APIKey:     settings.APIKey,
			ModelID:    settings.ModelID,
			SampleRate: cfg.Synthesis.SampleRate,
		}), nil
	})

	r.RegisterTTS("deepgram", func(ctx context.Context, cfg Config) (tts.Synthesizer, error) {
		if err := validateSettings("vendors.tts.settings", cfg.Vendors.TTS.Settings, configutil.Schema{
			Required: []string{"api_key"},
		}); err != nil {
			return nil, err
		}
		var settings struct {
			APIKey string `mapstructure:"api_key"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.TTS.Settings, &settings); err != nil {
			return nil, err
		}
		return deepgram.New(deepgram.Config{
			APIKey:     settings.APIKey,
			SampleRate: cfg.Synthesis.SampleRate,
		})
	})

	r.RegisterTTS("mock", func(ctx context.Context, cfg Config) (tts.Synthesizer, error) {
		return mock.NewTTS(mock.TTSConfig{SampleRate: cfg.Synthesis.SampleRate}), nil
	})

	return r
}

func validateSettings(path string, input map[string]any, schema configutil.Schema) error {
	if err := configutil.ValidateSettings(input, schema); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
