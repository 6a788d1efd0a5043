package dialogue

import (
	"fmt"

	"github.com/harunnryd/tutorcast/pkg/errorsx"
)

// MaxSpeakerShare is the largest fraction of total turns one host may hold.
// A lopsided script reads as a lecture, not a conversation.
const MaxSpeakerShare = 0.70

// ValidateScript checks the structural invariants every episode script must
// satisfy: non-empty turns with known speakers and segment types, an intro
// first, an outro last, and a balanced turn share between the hosts.
// Violating scripts fail here rather than being silently accepted.
func ValidateScript(s EpisodeScript) error {
	if len(s.Turns) == 0 {
		return schemaErr("script has no turns")
	}
	for i, turn := range s.Turns {
		if turn.Text == "" {
			return schemaErr(fmt.Sprintf("turn %d has empty text", i))
		}
		if !turn.Speaker.Valid() {
			return schemaErr(fmt.Sprintf("turn %d has unknown speaker %q", i, turn.Speaker))
		}
		if !turn.SegmentType.Valid() {
			return schemaErr(fmt.Sprintf("turn %d has unknown segment type %q", i, turn.SegmentType))
		}
	}
	if s.Turns[0].SegmentType != SegmentIntro {
		return schemaErr("script must begin with an intro segment")
	}
	if s.Turns[len(s.Turns)-1].SegmentType != SegmentOutro {
		return schemaErr("script must end with an outro segment")
	}

	counts := s.TurnsBySpeaker()
	total := len(s.Turns)
	for speaker, n := range counts {
		share := float64(n) / float64(total)
		if share > MaxSpeakerShare {
			return schemaErr(fmt.Sprintf("speaker %s holds %.0f%% of turns, max is %.0f%%",
				speaker, share*100, MaxSpeakerShare*100))
		}
	}
	return nil
}

func schemaErr(msg string) error {
	return errorsx.Wrap(fmt.Errorf("invalid script: %s", msg), errorsx.ReasonScriptSchema)
}
