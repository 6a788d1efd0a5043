// Package processor chunks extracted text and derives position-ordered
// topics used to seed lesson planning.
package processor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/extractor"
)

// Config bounds chunking and truncation.
type Config struct {
	// MaxChars is the hard truncation budget applied before any chunking,
	// sized to keep prompts inside model context limits.
	MaxChars     int
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// Chunk is one contiguous piece of the source text.
type Chunk struct {
	Index int
	Text  string
}

// Processor turns extracted content into chunks and topics.
type Processor struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Processor {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 24000
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 200
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{cfg: cfg, log: logger}
}

// Process derives numTopics non-overlapping topics ordered by their position
// in the source text. Empty input yields an empty slice, not an error.
func (p *Processor) Process(content *extractor.ExtractedContent, numTopics int) []dialogue.Topic {
	if content == nil || strings.TrimSpace(content.Text) == "" || numTopics <= 0 {
		return nil
	}
	text := p.Truncate(content.Text)

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if numTopics > len(sentences) {
		numTopics = len(sentences)
	}

	topics := make([]dialogue.Topic, 0, numTopics)
	per := len(sentences) / numTopics
	rem := len(sentences) % numTopics
	start := 0
	for i := 0; i < numTopics; i++ {
		n := per
		if i < rem {
			n++
		}
		window := sentences[start : start+n]
		start += n
		topics = append(topics, topicFromWindow(content.Title, i, window))
	}
	p.log.Debug("derived topics",
		slog.Int("topics", len(topics)),
		slog.Int("sentences", len(sentences)))
	return topics
}

// Truncate applies the hard character budget, counting and cutting in
// runes so multibyte text is never split mid-sequence.
func (p *Processor) Truncate(text string) string {
	return truncateRunes(text, p.cfg.MaxChars)
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ChunkText splits text into overlapping chunks for prompt assembly.
func (p *Processor) ChunkText(text string) []Chunk {
	text = p.Truncate(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var chunks []Chunk
	step := p.cfg.ChunkSize - p.cfg.ChunkOverlap
	runes := []rune(text)
	for start := 0; start < len(runes); start += step {
		end := start + p.cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if len(piece) >= p.cfg.MinChunkSize || len(chunks) == 0 {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: piece})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func topicFromWindow(sourceTitle string, index int, sentences []string) dialogue.Topic {
	title := headline(sentences[0])
	if title == "" {
		title = fmt.Sprintf("%s, part %d", sourceTitle, index+1)
	}

	keyPoints := make([]string, 0, 3)
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		keyPoints = append(keyPoints, headline(s))
		if len(keyPoints) == 3 {
			break
		}
	}

	description := truncateRunes(strings.TrimSpace(strings.Join(sentences, " ")), 600)
	return dialogue.Topic{
		Title:       title,
		Description: description,
		KeyPoints:   keyPoints,
	}
}

// headline shortens a sentence to a topic-sized phrase.
func headline(sentence string) string {
	sentence = strings.TrimSpace(strings.TrimRight(sentence, ".!?"))
	words := strings.Fields(sentence)
	const maxWords = 12
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); len(s) > 1 {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); len(s) > 1 {
		out = append(out, s)
	}
	return out
}
