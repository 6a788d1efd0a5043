// Package script turns topics into validated two-host episode scripts via
// a single prompt/response round trip per operation. The model must return
// JSON; markdown code fences around it are tolerated and stripped.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/errorsx"
	"github.com/harunnryd/tutorcast/pkg/llm"
	"github.com/harunnryd/tutorcast/pkg/resilience"
)

// Config bounds generation behavior.
type Config struct {
	MaxAttempts int
	Temperature float64
	BaseDelay   time.Duration
	// BreakerThreshold rate-limited failures open the breaker for
	// BreakerCooldown; zero values take the resilience defaults.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// EpisodeContext carries everything an episode prompt needs beyond the topic.
type EpisodeContext struct {
	LessonNumber  int
	TotalLessons  int
	SourceContent string
}

// Generator produces lesson plans and episode scripts.
type Generator struct {
	adapter llm.Adapter
	cfg     Config
	breaker *resilience.CircuitBreaker
	log     *slog.Logger
}

func NewGenerator(adapter llm.Adapter, cfg Config, logger *slog.Logger) *Generator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		adapter: adapter,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		log:     logger,
	}
}

type planPayload struct {
	Lessons []struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		KeyConcepts []string `json:"key_concepts"`
	} `json:"lessons"`
}

// CreateLessonPlan asks the model for numLessons ordered topics.
func (g *Generator) CreateLessonPlan(ctx context.Context, content, title string, numLessons int) ([]dialogue.Topic, error) {
	if numLessons <= 0 {
		return nil, errorsx.Wrap(fmt.Errorf("num_lessons must be positive, got %d", numLessons), errorsx.ReasonInvalidInput)
	}
	prompt := buildLessonPlanPrompt(title, content, numLessons)

	resp, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, errorsx.Wrap(err, generationReason(err))
	}

	var payload planPayload
	if err := decodeJSON(resp.Text, &payload); err != nil {
		return nil, err
	}
	if len(payload.Lessons) == 0 {
		return nil, schemaErr("lesson plan has no lessons")
	}

	topics := make([]dialogue.Topic, 0, len(payload.Lessons))
	for i, lesson := range payload.Lessons {
		if lesson.Title == "" {
			return nil, schemaErr(fmt.Sprintf("lesson %d missing title", i+1))
		}
		topics = append(topics, dialogue.Topic{
			Title:       lesson.Title,
			Description: lesson.Description,
			KeyPoints:   lesson.KeyConcepts,
		})
	}
	g.log.Info("lesson plan created",
		slog.Int("requested", numLessons),
		slog.Int("returned", len(topics)))
	return topics, nil
}

type episodePayload struct {
	Title string `json:"title"`
	Turns []struct {
		Speaker     string `json:"speaker"`
		Text        string `json:"text"`
		SegmentType string `json:"segment_type"`
	} `json:"turns"`
}

// GenerateEpisodeScript asks the model for one episode's dialogue and
// validates the structural invariants before returning it. A script that
// fails validation is regenerated up to the attempt budget.
func (g *Generator) GenerateEpisodeScript(ctx context.Context, topic dialogue.Topic, epCtx EpisodeContext) (dialogue.EpisodeScript, error) {
	prompt := buildEpisodePrompt(topic, epCtx)

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		resp, err := g.generate(ctx, prompt)
		if err != nil {
			return dialogue.EpisodeScript{}, errorsx.Wrap(err, generationReason(err))
		}

		episode, err := g.parseEpisode(resp.Text, topic, epCtx)
		if err == nil {
			g.log.Info("episode script generated",
				slog.Int("lesson", epCtx.LessonNumber),
				slog.Int("turns", len(episode.Turns)),
				slog.Int("attempt", attempt))
			return episode, nil
		}
		lastErr = err
		g.log.Warn("episode script rejected",
			slog.Int("lesson", epCtx.LessonNumber),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
	}
	return dialogue.EpisodeScript{}, errorsx.Wrap(
		fmt.Errorf("episode script failed after %d attempts: %w", g.cfg.MaxAttempts, lastErr),
		errorsx.ReasonScriptGeneration)
}

func (g *Generator) parseEpisode(raw string, topic dialogue.Topic, epCtx EpisodeContext) (dialogue.EpisodeScript, error) {
	var payload episodePayload
	if err := decodeJSON(raw, &payload); err != nil {
		return dialogue.EpisodeScript{}, err
	}

	title := payload.Title
	if title == "" {
		title = topic.Title
	}
	episode := dialogue.EpisodeScript{
		Title:        title,
		LessonNumber: epCtx.LessonNumber,
	}
	for _, turn := range payload.Turns {
		episode.Turns = append(episode.Turns, dialogue.DialogueTurn{
			Speaker:     dialogue.Speaker(strings.ToLower(strings.TrimSpace(turn.Speaker))),
			Text:        strings.TrimSpace(turn.Text),
			SegmentType: dialogue.SegmentType(strings.ToLower(strings.TrimSpace(turn.SegmentType))),
		})
	}
	if err := dialogue.ValidateScript(episode); err != nil {
		return dialogue.EpisodeScript{}, err
	}
	return episode, nil
}

func (g *Generator) generate(ctx context.Context, prompt string) (llm.Response, error) {
	if !g.breaker.Allow() {
		g.log.Warn("llm circuit breaker open")
		return llm.Response{}, resilience.RateLimitError{
			Provider: g.adapter.Name(),
			Message:  "generation paused after repeated rate limits",
		}
	}
	resp, err := llm.Retry(ctx, llm.RetryConfig{MaxAttempts: g.cfg.MaxAttempts, BaseDelay: g.cfg.BaseDelay},
		func(ctx context.Context) (llm.Response, error) {
			return g.adapter.Generate(ctx, llm.Request{
				Prompt:      prompt,
				Temperature: g.cfg.Temperature,
			})
		})
	if err != nil {
		g.breaker.OnError(err)
		return llm.Response{}, err
	}
	g.breaker.OnSuccess()
	return resp, nil
}

// generationReason distinguishes vendor throttling from other generation
// failures so callers can back off instead of failing the session outright.
func generationReason(err error) errorsx.ReasonCode {
	if resilience.IsRateLimit(err) {
		return errorsx.ReasonLLMRateLimit
	}
	return errorsx.ReasonScriptGeneration
}

// decodeJSON parses model output, stripping a surrounding markdown code
// fence when present.
func decodeJSON(raw string, out any) error {
	text := StripCodeFence(raw)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return errorsx.Wrap(fmt.Errorf("model returned invalid JSON: %w", err), errorsx.ReasonScriptSchema)
	}
	return nil
}

// StripCodeFence removes a wrapping ``` or ```json fence from model output.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
	} else {
		return text
	}
	if end := strings.Index(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

func schemaErr(msg string) error {
	return errorsx.Wrap(fmt.Errorf("invalid model response: %s", msg), errorsx.ReasonScriptSchema)
}
