package processor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/harunnryd/tutorcast/pkg/extractor"
)

func sourceText() string {
	var b strings.Builder
	subjects := []string{"Goroutines", "Channels", "Select", "Mutexes", "Contexts", "Timers"}
	for _, s := range subjects {
		b.WriteString(s + " are a core part of Go concurrency. ")
		b.WriteString(s + " show up in nearly every production service. ")
		b.WriteString("Understanding " + s + " takes practice and reading real code. ")
	}
	return b.String()
}

func TestProcessOrdersTopicsByPosition(t *testing.T) {
	p := New(Config{}, nil)
	content := &extractor.ExtractedContent{Title: "Go Concurrency", Text: sourceText()}

	topics := p.Process(content, 3)
	if len(topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(topics))
	}
	if !strings.Contains(topics[0].Title, "Goroutines") {
		t.Fatalf("expected first topic from start of text, got %q", topics[0].Title)
	}
	for i, topic := range topics {
		if topic.Description == "" || len(topic.KeyPoints) == 0 {
			t.Fatalf("topic %d missing description or key points: %+v", i, topic)
		}
	}
}

func TestProcessEmptyInput(t *testing.T) {
	p := New(Config{}, nil)
	if topics := p.Process(nil, 3); topics != nil {
		t.Fatalf("expected nil topics for nil content")
	}
	empty := &extractor.ExtractedContent{Title: "t", Text: "   "}
	if topics := p.Process(empty, 3); topics != nil {
		t.Fatalf("expected nil topics for blank text")
	}
}

func TestProcessMoreTopicsThanSentences(t *testing.T) {
	p := New(Config{}, nil)
	content := &extractor.ExtractedContent{Title: "t", Text: "One sentence only."}
	topics := p.Process(content, 5)
	if len(topics) != 1 {
		t.Fatalf("expected topic count clamped to 1, got %d", len(topics))
	}
}

func TestTruncateBudget(t *testing.T) {
	p := New(Config{MaxChars: 50}, nil)
	long := strings.Repeat("abcde ", 100)
	if got := p.Truncate(long); len(got) != 50 {
		t.Fatalf("expected 50 chars, got %d", len(got))
	}
}

func TestTruncateMultibyte(t *testing.T) {
	p := New(Config{MaxChars: 10}, nil)

	// 8 runes over 16 bytes fits the 10-rune budget untouched.
	short := strings.Repeat("é", 8)
	if got := p.Truncate(short); got != short {
		t.Fatalf("text within rune budget changed: %q", got)
	}

	got := p.Truncate(strings.Repeat("é", 20))
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 10 {
		t.Fatalf("expected 10 runes, got %d", n)
	}
}

func TestTopicDescriptionRuneSafe(t *testing.T) {
	p := New(Config{MaxChars: 10000}, nil)
	content := &extractor.ExtractedContent{
		Title: "Accents",
		Text:  strings.Repeat("é", 700) + ". And a short closer.",
	}
	topics := p.Process(content, 1)
	if len(topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(topics))
	}
	if !utf8.ValidString(topics[0].Description) {
		t.Fatalf("description split a rune: %q", topics[0].Description)
	}
	if n := utf8.RuneCountInString(topics[0].Description); n > 600 {
		t.Fatalf("description has %d runes, want <= 600", n)
	}
}

func TestChunkTextOverlap(t *testing.T) {
	p := New(Config{MaxChars: 10000, ChunkSize: 300, ChunkOverlap: 50, MinChunkSize: 10}, nil)
	chunks := p.ChunkText(sourceText())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
		if len(c.Text) > 300 {
			t.Fatalf("chunk %d exceeds chunk size: %d", i, len(c.Text))
		}
	}
}
