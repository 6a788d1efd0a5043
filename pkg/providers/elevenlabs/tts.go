package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/harunnryd/tutorcast/pkg/adapters/tts"
	"github.com/harunnryd/tutorcast/pkg/resilience"
)

type Config struct {
	APIKey     string
	ModelID    string
	SampleRate int
}

// Synthesizer calls the ElevenLabs one-shot synthesis endpoint and returns
// raw PCM. Voice identity comes from the per-request tts.Voice.
type Synthesizer struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Synthesizer {
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_turbo_v2_5"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	return &Synthesizer{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *Synthesizer) Name() string { return "elevenlabs_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, req tts.Request) (tts.Result, error) {
	if s.cfg.APIKey == "" {
		return tts.Result{}, errors.New("missing elevenlabs config")
	}
	if req.Voice.ID == "" {
		return tts.Result{}, errors.New("missing voice id")
	}
	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = s.cfg.SampleRate
	}

	payload, err := json.Marshal(map[string]any{
		"text":     req.Text,
		"model_id": s.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.8,
		},
	})
	if err != nil {
		return tts.Result{}, err
	}

	endpoint := s.buildURL(req.Voice.ID, sampleRate)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return tts.Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return tts.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Error("ElevenLabs rate limit exceeded",
			slog.String("voice", req.Voice.ID),
			slog.String("status", resp.Status))
		return tts.Result{}, resilience.RateLimitError{Provider: "elevenlabs", Message: resp.Status}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return tts.Result{}, errors.New(string(raw))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Result{}, err
	}
	slog.Debug("tts audio received",
		slog.String("voice", req.Voice.ID),
		slog.Int("size_bytes", len(audio)))

	return tts.Result{
		Audio:      audio,
		SampleRate: sampleRate,
		Duration:   tts.PCMDuration(audio, sampleRate),
	}, nil
}

// Ping checks API reachability and key validity against the user endpoint.
func (s *Synthesizer) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.elevenlabs.io/v1/user", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("xi-api-key", s.cfg.APIKey)
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("elevenlabs ping: " + resp.Status)
	}
	return nil
}

func (s *Synthesizer) buildURL(voiceID string, sampleRate int) string {
	q := url.Values{}
	switch sampleRate {
	case 16000:
		q.Set("output_format", "pcm_16000")
	case 44100:
		q.Set("output_format", "pcm_44100")
	default:
		q.Set("output_format", "pcm_24000")
	}
	return "https://api.elevenlabs.io/v1/text-to-speech/" + voiceID + "?" + q.Encode()
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
