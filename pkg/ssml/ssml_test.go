package ssml

import (
	"strings"
	"testing"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
)

func TestRenderEscapesText(t *testing.T) {
	turn := dialogue.DialogueTurn{
		Speaker:     dialogue.SpeakerAlex,
		Text:        `Use x < 10 && y > 0, like "guards".`,
		SegmentType: dialogue.SegmentDiscussion,
	}
	out := Render(turn)
	if strings.Contains(out, "&& y >") {
		t.Errorf("output not escaped: %s", out)
	}
	if !strings.HasPrefix(out, "<speak>") || !strings.HasSuffix(out, "</speak>") {
		t.Errorf("missing speak wrapper: %s", out)
	}
}

func TestRenderExampleSlower(t *testing.T) {
	example := Render(dialogue.DialogueTurn{Text: "x", SegmentType: dialogue.SegmentExample})
	discussion := Render(dialogue.DialogueTurn{Text: "x", SegmentType: dialogue.SegmentDiscussion})
	if !strings.Contains(example, `rate="95%"`) {
		t.Errorf("example segment should slow down: %s", example)
	}
	if !strings.Contains(discussion, `rate="medium"`) {
		t.Errorf("discussion segment should stay medium: %s", discussion)
	}
}

func TestStripRoundTrip(t *testing.T) {
	turn := dialogue.DialogueTurn{
		Text:        `A < B means "less than" & more.`,
		SegmentType: dialogue.SegmentRecap,
	}
	if got := Strip(Render(turn)); got != turn.Text {
		t.Errorf("Strip(Render(...)) = %q, want %q", got, turn.Text)
	}
}

func TestStripPlainPassthrough(t *testing.T) {
	if got := Strip("just words"); got != "just words" {
		t.Errorf("plain text changed: %q", got)
	}
}
