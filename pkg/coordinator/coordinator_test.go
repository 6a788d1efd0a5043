package coordinator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/objectstore"
	"github.com/harunnryd/tutorcast/pkg/providers/mock"
	"github.com/harunnryd/tutorcast/pkg/stitch"
	"github.com/harunnryd/tutorcast/pkg/synth"
)

func testScript() dialogue.EpisodeScript {
	return dialogue.EpisodeScript{
		Title:        "Lesson One",
		LessonNumber: 1,
		Turns: []dialogue.DialogueTurn{
			{Speaker: dialogue.SpeakerAlex, Text: "Welcome back.", SegmentType: dialogue.SegmentIntro},
			{Speaker: dialogue.SpeakerSam, Text: "What is on deck?", SegmentType: dialogue.SegmentDiscussion},
			{Speaker: dialogue.SpeakerAlex, Text: "Picture a conveyor belt.", SegmentType: dialogue.SegmentExample},
			{Speaker: dialogue.SpeakerSam, Text: "Belts move things, got it.", SegmentType: dialogue.SegmentRecap},
			{Speaker: dialogue.SpeakerAlex, Text: "See you next time.", SegmentType: dialogue.SegmentOutro},
		},
	}
}

func testCoordinator(t *testing.T, ttsCfg mock.TTSConfig) (*Coordinator, *objectstore.Store) {
	t.Helper()
	store, err := objectstore.New(objectstore.Config{
		BaseURL:       "mem://localhost/coordtest",
		PublicBaseURL: "https://audio.example.com",
		SigningKey:    "k",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := synth.NewService(mock.NewTTS(ttsCfg), synth.Config{MaxRetries: 1, Backoff: time.Millisecond}, nil)
	return New(svc, stitch.New(stitch.Config{}), store, NewMemoryJobStore(), Config{Parallelism: 2}, nil), store
}

func TestProcessEpisodeCompletes(t *testing.T) {
	coord, store := testCoordinator(t, mock.TTSConfig{})

	jobID, err := coord.ProcessEpisode(context.Background(), testScript(), "sess-1")
	if err != nil {
		t.Fatalf("ProcessEpisode: %v", err)
	}
	coord.Wait()

	job, err := coord.GetJob(jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != JobCompleted {
		t.Fatalf("status = %s, want COMPLETED (error: %s)", job.Status, job.Error)
	}
	if job.ProgressPercent != 100 {
		t.Errorf("progress = %d, want 100", job.ProgressPercent)
	}
	if job.AudioKey != "sessions/sess-1/lesson_1.wav" {
		t.Errorf("audio key = %q", job.AudioKey)
	}
	if !strings.Contains(job.AudioURL, "sig=") {
		t.Errorf("audio URL should be signed: %s", job.AudioURL)
	}
	if job.Duration <= 0 {
		t.Error("expected positive duration")
	}
	if job.CharactersUsed == 0 || job.EstimatedCost <= 0 {
		t.Errorf("cost accounting missing: chars=%d cost=%v", job.CharactersUsed, job.EstimatedCost)
	}

	data, err := store.Get(context.Background(), job.AudioKey)
	if err != nil {
		t.Fatalf("stored artifact unreadable: %v", err)
	}
	if string(data[:4]) != "RIFF" {
		t.Errorf("artifact is not a WAV file: % x", data[:4])
	}
}

func TestProcessEpisodeInvalidScriptFails(t *testing.T) {
	coord, _ := testCoordinator(t, mock.TTSConfig{})

	bad := testScript()
	bad.Turns = bad.Turns[1:] // no intro
	jobID, err := coord.ProcessEpisode(context.Background(), bad, "sess-2")
	if err != nil {
		t.Fatal(err)
	}
	coord.Wait()

	job, _ := coord.GetJob(jobID)
	if job.Status != JobFailed {
		t.Fatalf("status = %s, want FAILED", job.Status)
	}
	if job.Error == "" {
		t.Error("failed job should carry an error message")
	}
}

func TestProcessEpisodeSynthesisFailure(t *testing.T) {
	coord, _ := testCoordinator(t, mock.TTSConfig{Err: errors.New("vendor down")})

	jobID, err := coord.ProcessEpisode(context.Background(), testScript(), "sess-3")
	if err != nil {
		t.Fatal(err)
	}
	coord.Wait()

	job, _ := coord.GetJob(jobID)
	if job.Status != JobFailed {
		t.Fatalf("status = %s, want FAILED", job.Status)
	}
}

func TestStatusForwardOnly(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobPending, JobValidating, true},
		{JobValidating, JobSynthesizing, true},
		{JobSynthesizing, JobValidating, false},
		{JobCompleted, JobSynthesizing, false},
		{JobCompleted, JobFailed, false},
		{JobFailed, JobValidating, false},
		{JobUploading, JobFailed, true},
		{JobPending, JobCompleted, true},
	}
	for _, tc := range cases {
		if got := canTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestProgressMonotonic(t *testing.T) {
	coord, _ := testCoordinator(t, mock.TTSConfig{})
	jobID, _ := coord.ProcessEpisode(context.Background(), testScript(), "sess-4")

	last := -1
	deadline := time.After(5 * time.Second)
	for {
		job, err := coord.GetJob(jobID)
		if err != nil {
			t.Fatal(err)
		}
		if job.ProgressPercent < last {
			t.Fatalf("progress moved backward: %d -> %d", last, job.ProgressPercent)
		}
		last = job.ProgressPercent
		if job.Status.Terminal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job did not finish")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	coord.Wait()
}

func TestCleanupOldJobs(t *testing.T) {
	coord, _ := testCoordinator(t, mock.TTSConfig{})
	jobID, _ := coord.ProcessEpisode(context.Background(), testScript(), "sess-5")
	coord.Wait()

	if n, _ := coord.CleanupOldJobs(time.Hour); n != 0 {
		t.Errorf("fresh job removed, count = %d", n)
	}
	n, err := coord.CleanupOldJobs(-time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("cleanup removed %d jobs, want 1", n)
	}
	if _, err := coord.GetJob(jobID); err == nil {
		t.Error("cleaned job should be gone")
	}
}
