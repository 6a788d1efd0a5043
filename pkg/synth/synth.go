// Package synth maps dialogue turns onto a TTS vendor: voice selection per
// speaker, a small result cache keyed by voice and text, per-turn retries,
// and running cost accounting.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/harunnryd/tutorcast/pkg/adapters/tts"
	"github.com/harunnryd/tutorcast/pkg/cache"
	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/errorsx"
	"github.com/harunnryd/tutorcast/pkg/resilience"
	"github.com/harunnryd/tutorcast/pkg/ssml"
)

// VoiceProfile binds a host to a vendor voice.
type VoiceProfile struct {
	Voice tts.Voice
	// SupportsMarkup enables prosody markup; otherwise turns are sent as
	// plain text.
	SupportsMarkup bool
}

// Config controls synthesis behavior.
type Config struct {
	Voices     map[dialogue.Speaker]VoiceProfile
	SampleRate int
	MaxRetries int
	Backoff    time.Duration
	// CostPerChar is the vendor's per-character price in USD.
	CostPerChar float64
	CacheSize   int
	CacheTTL    time.Duration
	// BreakerThreshold rate-limited failures open the breaker for
	// BreakerCooldown; zero values take the resilience defaults.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultVoices is the stock host-to-voice mapping for vendors using
// named voice IDs. Registries override per vendor.
var DefaultVoices = map[dialogue.Speaker]VoiceProfile{
	dialogue.SpeakerAlex: {Voice: tts.Voice{ID: "Matthew", Engine: "neural"}, SupportsMarkup: true},
	dialogue.SpeakerSam:  {Voice: tts.Voice{ID: "Joanna", Engine: "neural"}, SupportsMarkup: true},
}

// Service synthesizes individual dialogue turns.
type Service struct {
	vendor  tts.Synthesizer
	cfg     Config
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	cache   *cache.Cache
	chars   atomic.Int64
	log     *slog.Logger
}

func NewService(vendor tts.Synthesizer, cfg Config, logger *slog.Logger) *Service {
	if cfg.Voices == nil {
		cfg.Voices = DefaultVoices
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	if cfg.CostPerChar <= 0 {
		cfg.CostPerChar = 0.000016
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		vendor:  vendor,
		cfg:     cfg,
		retry:   resilience.NewRetryPolicy(cfg.MaxRetries, cfg.Backoff),
		breaker: resilience.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		cache:   cache.New(cache.Config{MaxEntries: cfg.CacheSize, DefaultTTL: cfg.CacheTTL}, logger),
		log:     logger,
	}
}

// VoiceFor returns the voice profile for a speaker.
func (s *Service) VoiceFor(speaker dialogue.Speaker) (VoiceProfile, error) {
	profile, ok := s.cfg.Voices[speaker]
	if !ok {
		return VoiceProfile{}, errorsx.Wrap(fmt.Errorf("no voice configured for speaker %q", speaker), errorsx.ReasonSynthesis)
	}
	return profile, nil
}

// SynthesizeTurn converts one dialogue turn into PCM audio. Identical
// (voice, text) pairs within the cache window are served without a vendor
// call. Transient vendor failures are retried; rate limiting surfaces as
// ReasonTTSRateLimit.
func (s *Service) SynthesizeTurn(ctx context.Context, turn dialogue.DialogueTurn) (tts.Result, error) {
	profile, err := s.VoiceFor(turn.Speaker)
	if err != nil {
		return tts.Result{}, err
	}

	text := turn.Text
	if profile.SupportsMarkup {
		text = ssml.Render(turn)
	}

	key := profile.Voice.ID + "|" + text
	if cached, ok := s.cache.Get(key); ok {
		return cached.(tts.Result), nil
	}

	if !s.breaker.Allow() {
		s.log.Warn("tts circuit breaker open", slog.String("speaker", string(turn.Speaker)))
		return tts.Result{}, errorsx.Wrap(
			fmt.Errorf("synthesis paused after repeated vendor rate limits"), errorsx.ReasonTTSRateLimit)
	}

	req := tts.Request{Text: text, Voice: profile.Voice, SampleRate: s.cfg.SampleRate}
	var result tts.Result
	err = s.retry.DoContext(ctx, func(ctx context.Context) error {
		var synthErr error
		result, synthErr = s.vendor.Synthesize(ctx, req)
		return synthErr
	})
	if err != nil {
		s.breaker.OnError(err)
		reason := errorsx.ReasonSynthesis
		if resilience.IsRateLimit(err) {
			reason = errorsx.ReasonTTSRateLimit
		}
		return tts.Result{}, errorsx.Wrap(
			fmt.Errorf("synthesize turn (%s, %s): %w", turn.Speaker, turn.SegmentType, err), reason)
	}
	s.breaker.OnSuccess()

	s.chars.Add(int64(len(turn.Text)))
	s.cache.Set(key, result, 0)
	s.log.Debug("turn synthesized",
		slog.String("speaker", string(turn.Speaker)),
		slog.Int("chars", len(turn.Text)),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// CharactersSynthesized returns the cumulative billable character count.
func (s *Service) CharactersSynthesized() int64 {
	return s.chars.Load()
}

// EstimateCost prices a character count at the configured rate.
func (s *Service) EstimateCost(chars int64) float64 {
	return float64(chars) * s.cfg.CostPerChar
}

// EstimateScriptCost prices an entire script before synthesis.
func (s *Service) EstimateScriptCost(script dialogue.EpisodeScript) float64 {
	var chars int64
	for _, turn := range script.Turns {
		chars += int64(len(turn.Text))
	}
	return s.EstimateCost(chars)
}
