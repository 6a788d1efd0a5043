package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/tutorcast/pkg/coordinator"
	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/errorsx"
	"github.com/harunnryd/tutorcast/pkg/extractor"
	"github.com/harunnryd/tutorcast/pkg/logging"
	"github.com/harunnryd/tutorcast/pkg/objectstore"
	"github.com/harunnryd/tutorcast/pkg/processor"
	"github.com/harunnryd/tutorcast/pkg/script"
	"github.com/harunnryd/tutorcast/pkg/urlx"
)

// Config bounds session behavior.
type Config struct {
	// DefaultLessons is used when a create request does not specify a count.
	DefaultLessons int
	// MaxLessons caps the per-session lesson count.
	MaxLessons int
	// JobPollInterval is how often lesson generation checks job progress.
	JobPollInterval time.Duration
	// JobTimeout bounds one lesson's synthesis wall time.
	JobTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.DefaultLessons <= 0 {
		c.DefaultLessons = 3
	}
	if c.MaxLessons <= 0 {
		c.MaxLessons = 10
	}
	if c.JobPollInterval <= 0 {
		c.JobPollInterval = 50 * time.Millisecond
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 10 * time.Minute
	}
}

// Manager coordinates the whole session lifecycle across extraction,
// planning, and audio generation.
type Manager struct {
	extractor *extractor.Extractor
	processor *processor.Processor
	generator *script.Generator
	coord     *coordinator.Coordinator
	store     *objectstore.Store
	sessions  SessionStore
	cfg       Config
	log       *slog.Logger
	wg        sync.WaitGroup
	// mu serializes read-modify-write cycles on session records.
	mu sync.Mutex
}

func NewManager(
	ext *extractor.Extractor,
	proc *processor.Processor,
	gen *script.Generator,
	coord *coordinator.Coordinator,
	store *objectstore.Store,
	sessions SessionStore,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		extractor: ext,
		processor: proc,
		generator: gen,
		coord:     coord,
		store:     store,
		sessions:  sessions,
		cfg:       cfg,
		log:       logger,
	}
}

// CreateSession validates the URL synchronously and kicks off the
// extract-and-plan pipeline in the background. An invalid URL fails here
// without any network traffic.
func (m *Manager) CreateSession(ctx context.Context, rawURL string, numLessons int) (TutorSession, error) {
	result := urlx.Validate(rawURL)
	if !result.IsValid {
		return TutorSession{}, errorsx.Wrap(
			fmt.Errorf("invalid document URL %q: %s", rawURL, result.Reason), errorsx.ReasonInvalidInput)
	}
	if numLessons <= 0 {
		numLessons = m.cfg.DefaultLessons
	}
	if numLessons > m.cfg.MaxLessons {
		numLessons = m.cfg.MaxLessons
	}

	now := time.Now()
	session := TutorSession{
		ID:            uuid.NewString(),
		URL:           rawURL,
		NormalizedURL: result.NormalizedURL,
		Status:        StatusCreated,
		NumLessons:    numLessons,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.sessions.SaveSession(session); err != nil {
		return TutorSession{}, err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runPipeline(context.WithoutCancel(ctx), session.ID)
	}()
	return session, nil
}

// runPipeline drives one session from created to ready.
func (m *Manager) runPipeline(ctx context.Context, sessionID string) {
	log := logging.NewSessionLogger(m.log, sessionID)

	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return
	}

	m.setStatus(sessionID, StatusValidating)
	m.setStatus(sessionID, StatusExtracting)
	content, err := m.extractor.Extract(ctx, session.NormalizedURL)
	if err != nil {
		m.failSession(sessionID, err, log)
		return
	}

	m.setStatus(sessionID, StatusProcessing)
	source := m.processor.Truncate(content.Text)
	m.mutate(sessionID, func(s *TutorSession) {
		s.Title = content.Title
		s.SourceText = source
	})

	m.setStatus(sessionID, StatusPlanning)
	topics, err := m.generator.CreateLessonPlan(ctx, source, content.Title, session.NumLessons)
	if err != nil {
		m.failSession(sessionID, err, log)
		return
	}
	if len(topics) == 0 {
		m.failSession(sessionID, errorsx.Wrap(fmt.Errorf("no lessons could be planned"), errorsx.ReasonScriptGeneration), log)
		return
	}

	lessons := make([]Lesson, len(topics))
	for i, topic := range topics {
		lessons[i] = Lesson{
			Number:      i + 1,
			Title:       topic.Title,
			Description: topic.Description,
			KeyPoints:   topic.KeyPoints,
		}
	}
	m.mutate(sessionID, func(s *TutorSession) {
		s.Lessons = lessons
		s.NumLessons = len(lessons)
		s.Status = StatusReady
	})
	log.Info("session ready", slog.Int("lessons", len(lessons)))
}

// GetSession returns the current session state.
func (m *Manager) GetSession(id string) (TutorSession, error) {
	return m.sessions.GetSession(id)
}

// GetLesson returns one lesson of a session.
func (m *Manager) GetLesson(sessionID string, lessonNumber int) (Lesson, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return Lesson{}, err
	}
	lesson, ok := session.Lesson(lessonNumber)
	if !ok {
		return Lesson{}, errorsx.Wrap(
			fmt.Errorf("session %s has no lesson %d", sessionID, lessonNumber), errorsx.ReasonNotFound)
	}
	return *lesson, nil
}

// ListLessons returns the session's lessons in plan order.
func (m *Manager) ListLessons(sessionID string) ([]Lesson, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return append([]Lesson(nil), session.Lessons...), nil
}

// ListSessions returns sessions newest-first, optionally filtered by status.
// A non-positive limit returns everything.
func (m *Manager) ListSessions(status SessionStatus, limit int) ([]TutorSession, error) {
	all, err := m.sessions.ListSessions()
	if err != nil {
		return nil, err
	}
	out := make([]TutorSession, 0, len(all))
	for _, s := range all {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// DeleteSession removes the session and its stored audio artifacts.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	session, err := m.sessions.GetSession(id)
	if err != nil {
		return err
	}
	for _, lesson := range session.Lessons {
		if lesson.AudioKey != "" {
			if err := m.store.Delete(ctx, lesson.AudioKey); err != nil {
				m.log.Warn("artifact delete failed",
					slog.String("session_id", id),
					slog.String("key", lesson.AudioKey),
					slog.String("error", err.Error()))
			}
		}
	}
	return m.sessions.DeleteSession(id)
}

// GenerateLesson produces audio for one lesson, blocking until synthesis
// finishes. Re-generating an already generated lesson returns the existing
// artifact without touching any vendor.
func (m *Manager) GenerateLesson(ctx context.Context, sessionID string, lessonNumber int) (Lesson, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return Lesson{}, err
	}
	if session.Status != StatusReady && session.Status != StatusComplete && session.Status != StatusGenerating {
		return Lesson{}, errorsx.Wrap(
			fmt.Errorf("session %s is %s, lessons can only be generated once ready", sessionID, session.Status),
			errorsx.ReasonInvalidInput)
	}
	lesson, ok := session.Lesson(lessonNumber)
	if !ok {
		return Lesson{}, errorsx.Wrap(
			fmt.Errorf("session %s has no lesson %d", sessionID, lessonNumber), errorsx.ReasonNotFound)
	}
	if lesson.Generated {
		return *lesson, nil
	}

	log := logging.NewSessionLogger(m.log, sessionID)
	m.setStatus(sessionID, StatusGenerating)

	topic := dialogue.Topic{Title: lesson.Title, Description: lesson.Description, KeyPoints: lesson.KeyPoints}
	episode, err := m.generator.GenerateEpisodeScript(ctx, topic, script.EpisodeContext{
		LessonNumber:  lessonNumber,
		TotalLessons:  session.NumLessons,
		SourceContent: session.SourceText,
	})
	if err != nil {
		m.settleStatus(sessionID)
		return Lesson{}, err
	}

	jobID, err := m.coord.ProcessEpisode(ctx, episode, sessionID)
	if err != nil {
		m.settleStatus(sessionID)
		return Lesson{}, err
	}
	job, err := m.waitForJob(ctx, jobID)
	if err != nil {
		m.settleStatus(sessionID)
		return Lesson{}, err
	}
	if job.Status != coordinator.JobCompleted {
		m.settleStatus(sessionID)
		return Lesson{}, errorsx.Wrap(
			fmt.Errorf("lesson %d synthesis failed: %s", lessonNumber, job.Error), errorsx.ReasonSynthesis)
	}

	var updated Lesson
	m.mutate(sessionID, func(s *TutorSession) {
		l, ok := s.Lesson(lessonNumber)
		if !ok {
			return
		}
		l.Generated = true
		l.AudioKey = job.AudioKey
		l.AudioURL = job.AudioURL
		l.Duration = job.Duration
		l.JobID = job.JobID
		l.Script = &episode
		updated = *l
		if s.GeneratedCount() == len(s.Lessons) {
			s.Status = StatusComplete
		} else {
			s.Status = StatusReady
		}
	})
	log.Info("lesson generated",
		slog.Int("lesson", lessonNumber),
		slog.Duration("duration", job.Duration))
	return updated, nil
}

// GenerateAllLessons generates every remaining lesson in order.
func (m *Manager) GenerateAllLessons(ctx context.Context, sessionID string) ([]Lesson, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]Lesson, 0, len(session.Lessons))
	for _, lesson := range session.Lessons {
		generated, err := m.GenerateLesson(ctx, sessionID, lesson.Number)
		if err != nil {
			return out, err
		}
		out = append(out, generated)
	}
	return out, nil
}

// Transcript renders a generated lesson's script in the requested format.
func (m *Manager) Transcript(sessionID string, lessonNumber int, format dialogue.TranscriptFormat) (string, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return "", err
	}
	lesson, ok := session.Lesson(lessonNumber)
	if !ok {
		return "", errorsx.Wrap(
			fmt.Errorf("session %s has no lesson %d", sessionID, lessonNumber), errorsx.ReasonNotFound)
	}
	if lesson.Script == nil {
		return "", errorsx.Wrap(
			fmt.Errorf("lesson %d has not been generated yet", lessonNumber), errorsx.ReasonNotFound)
	}
	return dialogue.RenderTranscript(*lesson.Script, format), nil
}

// AudioURL returns a fresh signed retrieval URL for a generated lesson.
func (m *Manager) AudioURL(sessionID string, lessonNumber int) (string, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return "", err
	}
	lesson, ok := session.Lesson(lessonNumber)
	if !ok || lesson.AudioKey == "" {
		return "", errorsx.Wrap(
			fmt.Errorf("lesson %d has no audio", lessonNumber), errorsx.ReasonNotFound)
	}
	return m.store.SignedURL(lesson.AudioKey), nil
}

// CleanupOldSessions removes terminal sessions older than maxAge along with
// their artifacts, and prunes old jobs. Returns sessions removed.
func (m *Manager) CleanupOldSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	all, err := m.sessions.ListSessions()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, s := range all {
		terminal := s.Status == StatusComplete || s.Status == StatusError
		if terminal && s.UpdatedAt.Before(cutoff) {
			if err := m.DeleteSession(ctx, s.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	if _, err := m.coord.CleanupOldJobs(maxAge); err != nil {
		return removed, err
	}
	return removed, nil
}

// Wait blocks until background pipelines finish. Used at shutdown and in
// tests.
func (m *Manager) Wait() {
	m.wg.Wait()
	m.coord.Wait()
}

func (m *Manager) waitForJob(ctx context.Context, jobID string) (coordinator.SynthesisJob, error) {
	deadline := time.NewTimer(m.cfg.JobTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.cfg.JobPollInterval)
	defer ticker.Stop()
	for {
		job, err := m.coord.GetJob(jobID)
		if err != nil {
			return coordinator.SynthesisJob{}, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return coordinator.SynthesisJob{}, ctx.Err()
		case <-deadline.C:
			return coordinator.SynthesisJob{}, errorsx.Wrap(
				fmt.Errorf("synthesis job %s timed out", jobID), errorsx.ReasonSynthesis)
		case <-ticker.C:
		}
	}
}

func (m *Manager) setStatus(sessionID string, status SessionStatus) {
	m.mutate(sessionID, func(s *TutorSession) { s.Status = status })
}

// settleStatus returns a session to ready or complete after a failed
// generation attempt so further attempts stay possible.
func (m *Manager) settleStatus(sessionID string) {
	m.mutate(sessionID, func(s *TutorSession) {
		if s.GeneratedCount() == len(s.Lessons) && len(s.Lessons) > 0 {
			s.Status = StatusComplete
		} else {
			s.Status = StatusReady
		}
	})
}

func (m *Manager) failSession(sessionID string, err error, log *slog.Logger) {
	log.Error("session pipeline failed", slog.String("error", err.Error()))
	m.mutate(sessionID, func(s *TutorSession) {
		s.Status = StatusError
		s.Error = err.Error()
	})
}

func (m *Manager) mutate(sessionID string, fn func(*TutorSession)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return
	}
	fn(&session)
	session.UpdatedAt = time.Now()
	if err := m.sessions.SaveSession(session); err != nil {
		m.log.Error("persist session failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	}
}
