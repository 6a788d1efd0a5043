// Package tts defines the contract for any TTS vendor implementation.
// Vendors return raw PCM16 mono audio; container encoding happens at
// stitch time.
package tts

import (
	"context"
	"time"
)

// Voice is a vendor voice identity plus synthesis engine tier.
type Voice struct {
	ID     string
	Engine string
}

// Request is one turn of text to synthesize. Text may carry prosody markup;
// vendors that do not support markup receive pre-stripped plain text.
type Request struct {
	Text       string
	Voice      Voice
	SampleRate int
}

// Result is the synthesized audio for one request.
type Result struct {
	// Audio is PCM16 little-endian mono at SampleRate.
	Audio      []byte
	SampleRate int
	Duration   time.Duration
}

// Synthesizer is the vendor-agnostic TTS contract.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Synthesize converts one turn of text into audio bytes.
	Synthesize(ctx context.Context, req Request) (Result, error)
}

// PCMDuration computes play time of a PCM16 mono buffer.
func PCMDuration(audio []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 || len(audio) == 0 {
		return 0
	}
	samples := len(audio) / 2
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}
