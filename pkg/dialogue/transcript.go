package dialogue

import (
	"fmt"
	"strings"
	"time"
)

// TranscriptFormat selects how a script is rendered as text.
type TranscriptFormat string

const (
	FormatMarkdown TranscriptFormat = "markdown"
	FormatPlain    TranscriptFormat = "plain"
	FormatSRT      TranscriptFormat = "srt"
)

// RenderTranscript renders the script in the requested format. Unknown
// formats fall back to plain text.
func RenderTranscript(s EpisodeScript, format TranscriptFormat) string {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(s)
	case FormatSRT:
		return renderSRT(s)
	default:
		return renderPlain(s)
	}
}

func renderMarkdown(s EpisodeScript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	fmt.Fprintf(&b, "Episode %d\n\n", s.LessonNumber)
	for _, turn := range s.Turns {
		fmt.Fprintf(&b, "**%s:** %s\n\n", turn.Speaker.DisplayName(), turn.Text)
	}
	return b.String()
}

func renderPlain(s EpisodeScript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", s.Title)
	for _, turn := range s.Turns {
		fmt.Fprintf(&b, "%s: %s\n", turn.Speaker.DisplayName(), turn.Text)
	}
	return b.String()
}

// renderSRT uses the estimated per-turn durations for cue timing; the cues
// line up with the stitched audio only approximately.
func renderSRT(s EpisodeScript) string {
	var b strings.Builder
	var offset time.Duration
	for i, turn := range s.Turns {
		end := offset + turn.EstimatedDuration()
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s: %s\n\n",
			i+1, srtTimestamp(offset), srtTimestamp(end),
			turn.Speaker.DisplayName(), turn.Text)
		offset = end
	}
	return b.String()
}

func srtTimestamp(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
