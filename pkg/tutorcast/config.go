package tutorcast

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	LogFormat   string          `mapstructure:"log_format"`
	Vendors     VendorsConfig   `mapstructure:"vendors"`
	Extractor   ExtractorConfig `mapstructure:"extractor"`
	Processor   ProcessorConfig `mapstructure:"processor"`
	Script      ScriptConfig    `mapstructure:"script"`
	Synthesis   SynthesisConfig `mapstructure:"synthesis"`
	Audio       AudioConfig     `mapstructure:"audio"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Sessions    SessionsConfig  `mapstructure:"sessions"`
	Cache       CacheConfig     `mapstructure:"cache"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	LLM VendorConfig `mapstructure:"llm"`
	TTS VendorConfig `mapstructure:"tts"`
}

type ExtractorConfig struct {
	TimeoutMS     int   `mapstructure:"timeout_ms"`
	CacheTTLMin   int   `mapstructure:"cache_ttl_minutes"`
	MinTextLength int   `mapstructure:"min_text_length"`
	MaxBodyBytes  int64 `mapstructure:"max_body_bytes"`
}

type ProcessorConfig struct {
	MaxChars     int `mapstructure:"max_chars"`
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	MinChunkSize int `mapstructure:"min_chunk_size"`
}

type ScriptConfig struct {
	MaxAttempts int     `mapstructure:"max_attempts"`
	Temperature float64 `mapstructure:"temperature"`
}

type VoiceConfig struct {
	VoiceID string `mapstructure:"voice_id"`
	Engine  string `mapstructure:"engine"`
	Markup  bool   `mapstructure:"markup"`
}

type SynthesisConfig struct {
	SampleRate  int                    `mapstructure:"sample_rate"`
	MaxRetries  int                    `mapstructure:"max_retries"`
	BackoffMS   int                    `mapstructure:"backoff_ms"`
	CostPerChar float64                `mapstructure:"cost_per_char"`
	Parallelism int                    `mapstructure:"parallelism"`
	Voices      map[string]VoiceConfig `mapstructure:"voices"`
}

type AudioConfig struct {
	PauseSameSpeakerMS     int     `mapstructure:"pause_same_speaker_ms"`
	PauseBetweenSpeakersMS int     `mapstructure:"pause_between_speakers_ms"`
	FadeMS                 int     `mapstructure:"fade_ms"`
	TargetPeakDB           float64 `mapstructure:"target_peak_db"`
}

type StorageConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	SigningKey    string `mapstructure:"signing_key"`
	LinkTTLMin    int    `mapstructure:"link_ttl_minutes"`
}

type SessionsConfig struct {
	DefaultLessons   int `mapstructure:"default_lessons"`
	MaxLessons       int `mapstructure:"max_lessons"`
	JobPollMS        int `mapstructure:"job_poll_ms"`
	JobTimeoutMin    int `mapstructure:"job_timeout_minutes"`
	CleanupAfterHour int `mapstructure:"cleanup_after_hours"`
}

type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
	TTLMin     int `mapstructure:"ttl_minutes"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("extractor.timeout_ms", 20000)
	v.SetDefault("extractor.cache_ttl_minutes", 360)
	v.SetDefault("extractor.min_text_length", 200)
	v.SetDefault("extractor.max_body_bytes", 10485760)
	v.SetDefault("processor.max_chars", 24000)
	v.SetDefault("processor.chunk_size", 1500)
	v.SetDefault("processor.chunk_overlap", 200)
	v.SetDefault("processor.min_chunk_size", 100)
	v.SetDefault("script.max_attempts", 3)
	v.SetDefault("script.temperature", 0.7)
	v.SetDefault("synthesis.sample_rate", 24000)
	v.SetDefault("synthesis.max_retries", 2)
	v.SetDefault("synthesis.backoff_ms", 200)
	v.SetDefault("synthesis.cost_per_char", 0.000016)
	v.SetDefault("synthesis.parallelism", 4)
	v.SetDefault("audio.pause_same_speaker_ms", 250)
	v.SetDefault("audio.pause_between_speakers_ms", 600)
	v.SetDefault("audio.fade_ms", 50)
	v.SetDefault("audio.target_peak_db", -16.0)
	v.SetDefault("storage.link_ttl_minutes", 60)
	v.SetDefault("sessions.default_lessons", 3)
	v.SetDefault("sessions.max_lessons", 10)
	v.SetDefault("sessions.job_poll_ms", 250)
	v.SetDefault("sessions.job_timeout_minutes", 10)
	v.SetDefault("sessions.cleanup_after_hours", 24)
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.ttl_minutes", 60)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vendors.LLM.Provider) == "" {
		return fmt.Errorf("vendors.llm.provider is required")
	}
	if strings.TrimSpace(c.Vendors.TTS.Provider) == "" {
		return fmt.Errorf("vendors.tts.provider is required")
	}
	if strings.TrimSpace(c.Storage.BaseURL) == "" {
		return fmt.Errorf("storage.base_url is required")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.LLM.Settings = expandSettings(cfg.Vendors.LLM.Settings)
	cfg.Vendors.TTS.Settings = expandSettings(cfg.Vendors.TTS.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
