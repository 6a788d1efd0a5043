// Package ssml renders dialogue turns as speech markup for engines that
// accept it, and strips markup back to plain text for engines that don't.
package ssml

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
)

// rate per segment type. Examples are delivered slightly slower so
// listeners can follow along; everything else stays at medium.
var segmentRates = map[dialogue.SegmentType]string{
	dialogue.SegmentIntro:      "medium",
	dialogue.SegmentDiscussion: "medium",
	dialogue.SegmentExample:    "95%",
	dialogue.SegmentRecap:      "medium",
	dialogue.SegmentOutro:      "medium",
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape makes text safe for embedding inside speech markup.
func Escape(text string) string {
	return escaper.Replace(text)
}

// Render wraps a turn's text in a <speak> document with a prosody rate
// chosen by segment type.
func Render(turn dialogue.DialogueTurn) string {
	rate, ok := segmentRates[turn.SegmentType]
	if !ok {
		rate = "medium"
	}
	return fmt.Sprintf(`<speak><prosody rate="%s">%s</prosody></speak>`, rate, Escape(turn.Text))
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Strip removes speech markup tags and unescapes entities, returning the
// spoken text. Plain input passes through unchanged.
func Strip(markup string) string {
	text := tagPattern.ReplaceAllString(markup, "")
	text = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	).Replace(text)
	return strings.TrimSpace(text)
}
