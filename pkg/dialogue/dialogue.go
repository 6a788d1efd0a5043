// Package dialogue holds the data model for two-host episode scripts:
// speakers, dialogue turns, topics, and the validation rules a script must
// satisfy before it is handed to synthesis.
package dialogue

import (
	"strings"
	"time"
)

// Speaker identifies one of the two podcast hosts.
type Speaker string

const (
	// SpeakerAlex is the expert host.
	SpeakerAlex Speaker = "alex"
	// SpeakerSam is the co-host who asks the listener's questions.
	SpeakerSam Speaker = "sam"
)

// DisplayName returns the capitalized host name.
func (s Speaker) DisplayName() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Valid reports whether s is one of the two known hosts.
func (s Speaker) Valid() bool {
	return s == SpeakerAlex || s == SpeakerSam
}

// SegmentType is the structural role of a turn within the episode.
type SegmentType string

const (
	SegmentIntro      SegmentType = "intro"
	SegmentDiscussion SegmentType = "discussion"
	SegmentExample    SegmentType = "example"
	SegmentRecap      SegmentType = "recap"
	SegmentOutro      SegmentType = "outro"
)

// Valid reports whether t is a known segment type.
func (t SegmentType) Valid() bool {
	switch t {
	case SegmentIntro, SegmentDiscussion, SegmentExample, SegmentRecap, SegmentOutro:
		return true
	}
	return false
}

// SpeakingRateWPM is the assumed delivery rate used for duration estimates.
const SpeakingRateWPM = 150

// Topic is one unit of the lesson plan derived from source content.
type Topic struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyPoints   []string `json:"key_points"`
}

// DialogueTurn is one speaker's contiguous utterance.
type DialogueTurn struct {
	Speaker     Speaker     `json:"speaker"`
	Text        string      `json:"text"`
	SegmentType SegmentType `json:"segment_type"`
}

// WordCount returns the number of whitespace-separated words in the turn.
func (t DialogueTurn) WordCount() int {
	return len(strings.Fields(t.Text))
}

// EstimatedDuration estimates how long the turn takes to speak.
func (t DialogueTurn) EstimatedDuration() time.Duration {
	seconds := float64(t.WordCount()) / SpeakingRateWPM * 60
	return time.Duration(seconds * float64(time.Second))
}

// EpisodeScript is the complete two-host script for one lesson. Turn order
// is presentation order and is preserved through synthesis and stitching.
type EpisodeScript struct {
	Title        string         `json:"title"`
	LessonNumber int            `json:"lesson_number"`
	Turns        []DialogueTurn `json:"turns"`
}

// EstimatedDuration sums the per-turn estimates.
func (s EpisodeScript) EstimatedDuration() time.Duration {
	var total time.Duration
	for _, turn := range s.Turns {
		total += turn.EstimatedDuration()
	}
	return total
}

// TurnsBySpeaker counts how many turns each speaker has.
func (s EpisodeScript) TurnsBySpeaker() map[Speaker]int {
	counts := make(map[Speaker]int, 2)
	for _, turn := range s.Turns {
		counts[turn.Speaker]++
	}
	return counts
}
