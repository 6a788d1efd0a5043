// Package session owns the tutoring session lifecycle: a document URL goes
// in, a plan of lessons comes out, and each lesson can be generated into a
// stored audio episode.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/errorsx"
)

// SessionStatus is the lifecycle phase of a tutoring session.
type SessionStatus string

const (
	StatusCreated    SessionStatus = "created"
	StatusValidating SessionStatus = "validating"
	StatusExtracting SessionStatus = "extracting"
	StatusProcessing SessionStatus = "processing"
	StatusPlanning   SessionStatus = "planning"
	StatusReady      SessionStatus = "ready"
	StatusGenerating SessionStatus = "generating"
	StatusComplete   SessionStatus = "complete"
	StatusError      SessionStatus = "error"
)

// Lesson is one planned episode within a session.
type Lesson struct {
	Number      int                     `json:"number"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	KeyPoints   []string                `json:"key_points,omitempty"`
	Generated   bool                    `json:"generated"`
	AudioKey    string                  `json:"audio_key,omitempty"`
	AudioURL    string                  `json:"audio_url,omitempty"`
	Duration    time.Duration           `json:"duration,omitempty"`
	JobID       string                  `json:"job_id,omitempty"`
	Script      *dialogue.EpisodeScript `json:"-"`
}

// TutorSession is the full state of one tutoring session.
type TutorSession struct {
	ID            string        `json:"id"`
	URL           string        `json:"url"`
	NormalizedURL string        `json:"normalized_url"`
	Title         string        `json:"title,omitempty"`
	Status        SessionStatus `json:"status"`
	Error         string        `json:"error,omitempty"`
	NumLessons    int           `json:"num_lessons"`
	Lessons       []Lesson      `json:"lessons"`
	SourceText    string        `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// GeneratedCount returns how many lessons have audio.
func (s *TutorSession) GeneratedCount() int {
	n := 0
	for _, lesson := range s.Lessons {
		if lesson.Generated {
			n++
		}
	}
	return n
}

// Lesson returns the lesson with the given 1-based number.
func (s *TutorSession) Lesson(number int) (*Lesson, bool) {
	for i := range s.Lessons {
		if s.Lessons[i].Number == number {
			return &s.Lessons[i], true
		}
	}
	return nil, false
}

// SessionStore persists tutoring sessions.
type SessionStore interface {
	SaveSession(session TutorSession) error
	GetSession(id string) (TutorSession, error)
	ListSessions() ([]TutorSession, error)
	DeleteSession(id string) error
}

// MemorySessionStore is the in-process SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]TutorSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]TutorSession)}
}

func (s *MemorySessionStore) SaveSession(session TutorSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copySession(session)
	return nil
}

func (s *MemorySessionStore) GetSession(id string) (TutorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return TutorSession{}, errorsx.Wrap(fmt.Errorf("session %s not found", id), errorsx.ReasonNotFound)
	}
	return copySession(session), nil
}

func (s *MemorySessionStore) ListSessions() ([]TutorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TutorSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, copySession(session))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemorySessionStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return errorsx.Wrap(fmt.Errorf("session %s not found", id), errorsx.ReasonNotFound)
	}
	delete(s.sessions, id)
	return nil
}

func copySession(session TutorSession) TutorSession {
	out := session
	out.Lessons = make([]Lesson, len(session.Lessons))
	copy(out.Lessons, session.Lessons)
	return out
}

var _ SessionStore = (*MemorySessionStore)(nil)
