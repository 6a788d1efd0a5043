package deepgram

import (
	"context"
	"errors"
	"log/slog"

	speakapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/speak/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	speakclient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/speak"

	"github.com/harunnryd/tutorcast/pkg/adapters/tts"
)

type Config struct {
	APIKey     string
	SampleRate int
}

// Synthesizer speaks text through Deepgram Aura. The tts.Voice ID selects
// the Aura model (for example "aura-2-orion-en").
type Synthesizer struct {
	cfg Config
	api *speakapi.Client
}

func New(cfg Config) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing deepgram config")
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	client := speakclient.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return &Synthesizer{cfg: cfg, api: speakapi.New(client)}, nil
}

func (s *Synthesizer) Name() string { return "deepgram_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, req tts.Request) (tts.Result, error) {
	if req.Voice.ID == "" {
		return tts.Result{}, errors.New("missing voice id")
	}
	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = s.cfg.SampleRate
	}

	options := &interfaces.SpeakOptions{
		Model:      req.Voice.ID,
		Encoding:   "linear16",
		Container:  "none",
		SampleRate: sampleRate,
	}
	var buf interfaces.RawResponse
	if _, err := s.api.ToStream(ctx, req.Text, options, &buf); err != nil {
		slog.Error("deepgram speak failed",
			slog.String("model", req.Voice.ID),
			slog.String("error", err.Error()))
		return tts.Result{}, err
	}

	audio := buf.Bytes()
	slog.Debug("tts audio received",
		slog.String("model", req.Voice.ID),
		slog.Int("size_bytes", len(audio)))
	return tts.Result{
		Audio:      audio,
		SampleRate: sampleRate,
		Duration:   tts.PCMDuration(audio, sampleRate),
	}, nil
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
