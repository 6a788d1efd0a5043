// Package tutorcast wires the full document-to-podcast engine: extraction,
// lesson planning, script generation, synthesis, stitching, and storage,
// behind a single configurable entry point.
package tutorcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/tutorcast/pkg/adapters/tts"
	"github.com/harunnryd/tutorcast/pkg/cache"
	"github.com/harunnryd/tutorcast/pkg/coordinator"
	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/extractor"
	"github.com/harunnryd/tutorcast/pkg/llm"
	"github.com/harunnryd/tutorcast/pkg/logging"
	"github.com/harunnryd/tutorcast/pkg/objectstore"
	"github.com/harunnryd/tutorcast/pkg/processor"
	"github.com/harunnryd/tutorcast/pkg/script"
	"github.com/harunnryd/tutorcast/pkg/session"
	"github.com/harunnryd/tutorcast/pkg/stitch"
	"github.com/harunnryd/tutorcast/pkg/synth"
)

// Engine is the assembled pipeline.
type Engine struct {
	cfg     Config
	manager *session.Manager
	synth   *synth.Service
	store   *objectstore.Store
	cache   *cache.Cache
	llm     llm.Adapter
	tts     tts.Synthesizer
	log     *slog.Logger
}

// EngineOptions customizes engine assembly. Providers defaults to the
// built-in registry; SessionStore and JobStore default to in-memory.
type EngineOptions struct {
	Config       Config
	Providers    *ProviderRegistry
	SessionStore session.SessionStore
	JobStore     coordinator.JobStore
	Logger       *slog.Logger
}

func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	cfg := opts.Config

	logger := opts.Logger
	if logger == nil {
		logger = logging.InitLogger(parseLevel(cfg.LogLevel))
		slog.SetDefault(logger)
	}

	providers := opts.Providers
	if providers == nil {
		providers = DefaultRegistry()
	}
	llmAdapter, err := providers.BuildLLM(ctx, cfg.Vendors.LLM.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build llm vendor: %w", err)
	}
	ttsVendor, err := providers.BuildTTS(ctx, cfg.Vendors.TTS.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build tts vendor: %w", err)
	}

	logger.Info("tutorcast_init",
		slog.String("environment", cfg.Environment),
		slog.String("llm_provider", cfg.Vendors.LLM.Provider),
		slog.String("tts_provider", cfg.Vendors.TTS.Provider),
		slog.String("storage", cfg.Storage.BaseURL))

	contentCache := cache.New(cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		DefaultTTL: time.Duration(cfg.Cache.TTLMin) * time.Minute,
	}, logging.NewComponentLogger(logger, "cache"))

	ext := extractor.New(extractor.Config{
		Timeout:       time.Duration(cfg.Extractor.TimeoutMS) * time.Millisecond,
		CacheTTL:      time.Duration(cfg.Extractor.CacheTTLMin) * time.Minute,
		MinTextLength: cfg.Extractor.MinTextLength,
		MaxBodyBytes:  cfg.Extractor.MaxBodyBytes,
	}, contentCache, logging.NewComponentLogger(logger, "extractor"))

	proc := processor.New(processor.Config{
		MaxChars:     cfg.Processor.MaxChars,
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
		MinChunkSize: cfg.Processor.MinChunkSize,
	}, logging.NewComponentLogger(logger, "processor"))

	gen := script.NewGenerator(llmAdapter, script.Config{
		MaxAttempts: cfg.Script.MaxAttempts,
		Temperature: cfg.Script.Temperature,
	}, logging.NewComponentLogger(logger, "script"))

	store, err := objectstore.New(objectstore.Config{
		BaseURL:       cfg.Storage.BaseURL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		SigningKey:    cfg.Storage.SigningKey,
		LinkTTL:       time.Duration(cfg.Storage.LinkTTLMin) * time.Minute,
	}, logging.NewComponentLogger(logger, "objectstore"))
	if err != nil {
		return nil, err
	}

	synthSvc := synth.NewService(ttsVendor, synth.Config{
		Voices:      voiceProfiles(cfg.Synthesis.Voices),
		SampleRate:  cfg.Synthesis.SampleRate,
		MaxRetries:  cfg.Synthesis.MaxRetries,
		Backoff:     time.Duration(cfg.Synthesis.BackoffMS) * time.Millisecond,
		CostPerChar: cfg.Synthesis.CostPerChar,
	}, logging.NewComponentLogger(logger, "synth"))

	stitcher := stitch.New(stitch.Config{
		SampleRate:           cfg.Synthesis.SampleRate,
		PauseSameSpeaker:     time.Duration(cfg.Audio.PauseSameSpeakerMS) * time.Millisecond,
		PauseBetweenSpeakers: time.Duration(cfg.Audio.PauseBetweenSpeakersMS) * time.Millisecond,
		Fade:                 time.Duration(cfg.Audio.FadeMS) * time.Millisecond,
		TargetPeakDB:         cfg.Audio.TargetPeakDB,
	})

	jobStore := opts.JobStore
	if jobStore == nil {
		jobStore = coordinator.NewMemoryJobStore()
	}
	coord := coordinator.New(synthSvc, stitcher, store, jobStore, coordinator.Config{
		Parallelism: cfg.Synthesis.Parallelism,
	}, logging.NewComponentLogger(logger, "coordinator"))

	sessionStore := opts.SessionStore
	if sessionStore == nil {
		sessionStore = session.NewMemorySessionStore()
	}
	manager := session.NewManager(ext, proc, gen, coord, store, sessionStore, session.Config{
		DefaultLessons:  cfg.Sessions.DefaultLessons,
		MaxLessons:      cfg.Sessions.MaxLessons,
		JobPollInterval: time.Duration(cfg.Sessions.JobPollMS) * time.Millisecond,
		JobTimeout:      time.Duration(cfg.Sessions.JobTimeoutMin) * time.Minute,
	}, logging.NewComponentLogger(logger, "session"))

	return &Engine{
		cfg:     cfg,
		manager: manager,
		synth:   synthSvc,
		store:   store,
		cache:   contentCache,
		llm:     llmAdapter,
		tts:     ttsVendor,
		log:     logger,
	}, nil
}

// Sessions returns the session manager, the engine's primary API surface.
func (e *Engine) Sessions() *session.Manager {
	return e.manager
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// CharactersSynthesized reports cumulative billable TTS characters.
func (e *Engine) CharactersSynthesized() int64 {
	return e.synth.CharactersSynthesized()
}

// Drain waits for in-flight background work to finish.
func (e *Engine) Drain() error {
	e.manager.Wait()
	return nil
}

// Health reports per-component up/down status. Storage is probed with a
// real write/delete round trip; vendors implementing Ping get a liveness
// call, the rest report ok.
type Health struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	CacheStats cache.Stats       `json:"cache_stats"`
}

// pinger is the optional liveness contract vendor adapters may implement.
type pinger interface {
	Ping(ctx context.Context) error
}

func (e *Engine) Health(ctx context.Context) Health {
	components := map[string]string{
		"llm": componentStatus(ctx, e.llm),
		"tts": componentStatus(ctx, e.tts),
	}
	probe := fmt.Sprintf("health/probe_%d", time.Now().UnixNano())
	if _, err := e.store.Put(ctx, probe, []byte("ok")); err != nil {
		components["storage"] = "error: " + err.Error()
	} else {
		components["storage"] = "ok"
		_ = e.store.Delete(ctx, probe)
	}

	status := "ok"
	for _, v := range components {
		if v != "ok" {
			status = "degraded"
			break
		}
	}
	return Health{Status: status, Components: components, CacheStats: e.cache.Stats()}
}

func componentStatus(ctx context.Context, component any) string {
	p, ok := component.(pinger)
	if !ok {
		return "ok"
	}
	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func voiceProfiles(voices map[string]VoiceConfig) map[dialogue.Speaker]synth.VoiceProfile {
	if len(voices) == 0 {
		return nil
	}
	out := make(map[dialogue.Speaker]synth.VoiceProfile, len(voices))
	for name, vc := range voices {
		out[dialogue.Speaker(name)] = synth.VoiceProfile{
			Voice:          tts.Voice{ID: vc.VoiceID, Engine: vc.Engine},
			SupportsMarkup: vc.Markup,
		}
	}
	return out
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
