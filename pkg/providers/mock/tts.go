package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/tutorcast/pkg/adapters/tts"
)

type TTSConfig struct {
	SampleRate int
	// BytesPerChar sizes the fake audio proportionally to input length so
	// stitched output durations stay plausible.
	BytesPerChar int
	// Err, when set, fails every synthesis call.
	Err error
	// FailOnText fails only requests whose text matches exactly.
	FailOnText string
}

// Synthesizer emits deterministic silent PCM sized by input text.
type Synthesizer struct {
	cfg   TTSConfig
	mu    sync.Mutex
	calls []tts.Request
}

func NewTTS(cfg TTSConfig) *Synthesizer {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	if cfg.BytesPerChar <= 0 {
		cfg.BytesPerChar = 64
	}
	return &Synthesizer{cfg: cfg}
}

func (s *Synthesizer) Name() string { return "mock_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, req tts.Request) (tts.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.cfg.Err != nil {
		return tts.Result{}, s.cfg.Err
	}
	if s.cfg.FailOnText != "" && req.Text == s.cfg.FailOnText {
		return tts.Result{}, context.DeadlineExceeded
	}

	n := len(req.Text) * s.cfg.BytesPerChar
	if n%2 == 1 {
		n++
	}
	if n == 0 {
		n = 2
	}
	audio := make([]byte, n)
	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = s.cfg.SampleRate
	}
	return tts.Result{
		Audio:      audio,
		SampleRate: sampleRate,
		Duration:   tts.PCMDuration(audio, sampleRate),
	}, nil
}

// Ping reports the configured error, if any.
func (s *Synthesizer) Ping(ctx context.Context) error {
	return s.cfg.Err
}

// Calls returns a copy of every request seen so far, in order.
func (s *Synthesizer) Calls() []tts.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tts.Request, len(s.calls))
	copy(out, s.calls)
	return out
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
