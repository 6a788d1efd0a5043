// Package stitch assembles per-turn PCM clips into one episode track:
// speaker-aware pauses, edge fades against clicks, peak normalization, and
// WAV container encoding.
package stitch

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/errorsx"
)

// Config controls pause lengths, fade window, and loudness target.
type Config struct {
	SampleRate int
	// PauseSameSpeaker separates consecutive turns by the same host.
	PauseSameSpeaker time.Duration
	// PauseBetweenSpeakers separates a host handoff; longer than same-speaker
	// so the handoff is audible.
	PauseBetweenSpeakers time.Duration
	// Fade ramps each clip's edges to zero to avoid clicks at joins.
	Fade time.Duration
	// TargetPeakDB is the normalization target in dBFS.
	TargetPeakDB float64
}

func (c *Config) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 24000
	}
	if c.PauseSameSpeaker == 0 {
		c.PauseSameSpeaker = 250 * time.Millisecond
	}
	if c.PauseBetweenSpeakers == 0 {
		c.PauseBetweenSpeakers = 600 * time.Millisecond
	}
	if c.Fade == 0 {
		c.Fade = 50 * time.Millisecond
	}
	if c.TargetPeakDB == 0 {
		c.TargetPeakDB = -16
	}
}

// Segment is one turn's audio tagged with its speaker.
type Segment struct {
	Speaker dialogue.Speaker
	Audio   []byte
}

// Stitcher joins segments into a single PCM16 mono track.
type Stitcher struct {
	cfg Config
}

func New(cfg Config) *Stitcher {
	cfg.applyDefaults()
	return &Stitcher{cfg: cfg}
}

// Stitch concatenates segments in order, inserting a pause between each
// pair sized by whether the speaker changes. Empty segments are skipped.
// An empty input yields an empty track.
func (s *Stitcher) Stitch(segments []Segment) []byte {
	samples := make([]int16, 0)
	var prevSpeaker dialogue.Speaker
	first := true
	for _, seg := range segments {
		if len(seg.Audio) == 0 {
			continue
		}
		clip := bytesToSamples(seg.Audio)
		s.fadeEdges(clip)
		if !first {
			pause := s.cfg.PauseBetweenSpeakers
			if seg.Speaker == prevSpeaker {
				pause = s.cfg.PauseSameSpeaker
			}
			samples = append(samples, make([]int16, s.samplesFor(pause))...)
		}
		samples = append(samples, clip...)
		prevSpeaker = seg.Speaker
		first = false
	}
	return samplesToBytes(samples)
}

// Normalize scales the track so its peak hits the configured dBFS target.
// Quiet tracks are boosted, loud ones attenuated; silence is untouched.
func (s *Stitcher) Normalize(pcm []byte) []byte {
	samples := bytesToSamples(pcm)
	var peak int16
	for _, v := range samples {
		if v == math.MinInt16 {
			peak = math.MaxInt16
			break
		}
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return pcm
	}
	target := math.Pow(10, s.cfg.TargetPeakDB/20) * math.MaxInt16
	gain := target / float64(peak)
	out := make([]int16, len(samples))
	for i, v := range samples {
		scaled := float64(v) * gain
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		out[i] = int16(scaled)
	}
	return samplesToBytes(out)
}

// EncodeWAV writes the PCM track as a 16-bit mono WAV file.
func (s *Stitcher) EncodeWAV(w io.WriteSeeker, pcm []byte) error {
	samples := bytesToSamples(pcm)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: s.cfg.SampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, v := range samples {
		buf.Data[i] = int(v)
	}
	enc := wav.NewEncoder(w, s.cfg.SampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return errorsx.Wrap(fmt.Errorf("write wav samples: %w", err), errorsx.ReasonStitch)
	}
	if err := enc.Close(); err != nil {
		return errorsx.Wrap(fmt.Errorf("finalize wav: %w", err), errorsx.ReasonStitch)
	}
	return nil
}

// EncodeWAVBytes renders the WAV file in memory. The wav encoder needs a
// seekable writer to backfill chunk sizes, so a seekable buffer stands in.
func (s *Stitcher) EncodeWAVBytes(pcm []byte) ([]byte, error) {
	buf := &seekBuffer{}
	if err := s.EncodeWAV(buf, pcm); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// seekBuffer is a minimal in-memory io.WriteSeeker.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = b.pos + int(offset)
	case io.SeekEnd:
		next = len(b.data) + int(offset)
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	b.pos = next
	return int64(next), nil
}

// Duration reports play time of a PCM track at the configured rate.
func (s *Stitcher) Duration(pcm []byte) time.Duration {
	if s.cfg.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(pcm)/2) / float64(s.cfg.SampleRate) * float64(time.Second))
}

func (s *Stitcher) samplesFor(d time.Duration) int {
	return int(float64(s.cfg.SampleRate) * d.Seconds())
}

// fadeEdges applies linear ramps at both ends of a clip in place.
func (s *Stitcher) fadeEdges(clip []int16) {
	n := s.samplesFor(s.cfg.Fade)
	if n <= 0 {
		return
	}
	if n > len(clip)/2 {
		n = len(clip) / 2
	}
	for i := 0; i < n; i++ {
		gain := float64(i) / float64(n)
		clip[i] = int16(float64(clip[i]) * gain)
		j := len(clip) - 1 - i
		clip[j] = int16(float64(clip[j]) * gain)
	}
}

func bytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

func samplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
