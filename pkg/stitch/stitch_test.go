package stitch

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
)

// tone builds a PCM16 clip of n samples at a constant amplitude.
func tone(n int, amplitude int16) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(amplitude))
	}
	return out
}

func TestStitchSpeakerChangePausesLonger(t *testing.T) {
	st := New(Config{})
	clip := tone(2400, 1000)

	sameSpeaker := st.Stitch([]Segment{
		{Speaker: dialogue.SpeakerAlex, Audio: clip},
		{Speaker: dialogue.SpeakerAlex, Audio: clip},
	})
	handoff := st.Stitch([]Segment{
		{Speaker: dialogue.SpeakerAlex, Audio: clip},
		{Speaker: dialogue.SpeakerSam, Audio: clip},
	})
	if len(handoff) <= len(sameSpeaker) {
		t.Fatalf("handoff pause should be longer: handoff=%d same=%d", len(handoff), len(sameSpeaker))
	}
	// 600ms vs 250ms at 24kHz mono 16-bit.
	wantDiff := (14400 - 6000) * 2
	if got := len(handoff) - len(sameSpeaker); got != wantDiff {
		t.Errorf("pause delta = %d bytes, want %d", got, wantDiff)
	}
}

func TestStitchPreservesOrder(t *testing.T) {
	st := New(Config{Fade: time.Millisecond})
	first := tone(2400, 1000)
	second := tone(2400, 2000)

	out := st.Stitch([]Segment{
		{Speaker: dialogue.SpeakerAlex, Audio: first},
		{Speaker: dialogue.SpeakerSam, Audio: second},
	})
	samples := bytesToSamples(out)

	// Midpoints of each clip region: clip1, pause (600ms = 14400 samples), clip2.
	if got := samples[1200]; got != 1000 {
		t.Errorf("first clip midpoint = %d, want 1000", got)
	}
	if got := samples[2400+14400+1200]; got != 2000 {
		t.Errorf("second clip midpoint = %d, want 2000", got)
	}
	if got := samples[2400+7200]; got != 0 {
		t.Errorf("pause region should be silent, got %d", got)
	}
}

func TestStitchEmptyInputs(t *testing.T) {
	st := New(Config{})
	if out := st.Stitch(nil); len(out) != 0 {
		t.Errorf("empty input should yield empty track, got %d bytes", len(out))
	}
	clip := tone(240, 500)
	out := st.Stitch([]Segment{
		{Speaker: dialogue.SpeakerAlex, Audio: nil},
		{Speaker: dialogue.SpeakerAlex, Audio: clip},
	})
	// Skipped empty segment must not introduce a pause.
	if len(out) != len(clip) {
		t.Errorf("single clip with empty sibling = %d bytes, want %d", len(out), len(clip))
	}
}

func TestStitchFadesEdges(t *testing.T) {
	st := New(Config{})
	out := st.Stitch([]Segment{{Speaker: dialogue.SpeakerAlex, Audio: tone(4800, 10000)}})
	samples := bytesToSamples(out)
	if samples[0] != 0 {
		t.Errorf("first sample = %d, want 0 after fade-in", samples[0])
	}
	if samples[len(samples)-1] != 0 {
		t.Errorf("last sample = %d, want 0 after fade-out", samples[len(samples)-1])
	}
	if samples[2400] != 10000 {
		t.Errorf("midpoint = %d, want untouched 10000", samples[2400])
	}
}

func TestNormalize(t *testing.T) {
	st := New(Config{TargetPeakDB: -16})
	quiet := tone(1000, 100)
	out := bytesToSamples(st.Normalize(quiet))

	// -16 dBFS of full scale is about 5193.
	want := int16(5192)
	if out[0] < want-10 || out[0] > want+10 {
		t.Errorf("normalized peak = %d, want ~%d", out[0], want)
	}

	silence := tone(1000, 0)
	normalized := st.Normalize(silence)
	for _, b := range normalized {
		if b != 0 {
			t.Fatal("silence should stay silent")
		}
	}
}

func TestEncodeWAV(t *testing.T) {
	st := New(Config{})
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.EncodeWAV(f, tone(2400, 1000)); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	f.Close()

	rf, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	dec := wav.NewDecoder(rf)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		t.Fatal("encoded file is not a valid WAV")
	}
	if dec.SampleRate != 24000 {
		t.Errorf("sample rate = %d, want 24000", dec.SampleRate)
	}
	if dec.NumChans != 1 {
		t.Errorf("channels = %d, want 1", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		t.Errorf("bit depth = %d, want 16", dec.BitDepth)
	}
}

func TestEncodeWAVBytes(t *testing.T) {
	st := New(Config{})
	path := filepath.Join(t.TempDir(), "mem.wav")
	data, err := st.EncodeWAVBytes(tone(2400, 1000))
	if err != nil {
		t.Fatalf("EncodeWAVBytes: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		t.Fatal("in-memory encoded WAV is invalid")
	}
}

func TestDuration(t *testing.T) {
	st := New(Config{})
	if got := st.Duration(tone(24000, 1)); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
}
