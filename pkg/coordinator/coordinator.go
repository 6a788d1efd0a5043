package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/harunnryd/tutorcast/pkg/adapters/tts"
	"github.com/harunnryd/tutorcast/pkg/dialogue"
	"github.com/harunnryd/tutorcast/pkg/errorsx"
	"github.com/harunnryd/tutorcast/pkg/objectstore"
	"github.com/harunnryd/tutorcast/pkg/stitch"
	"github.com/harunnryd/tutorcast/pkg/synth"
)

// Progress checkpoints per phase. Synthesis advances proportionally from
// its start up to the stitching checkpoint.
const (
	progressValidating = 10
	progressSynthCeil  = 70
	progressStitching  = 85
	progressUploading  = 95
	progressCompleted  = 100
)

// Config bounds pipeline concurrency.
type Config struct {
	// Parallelism caps concurrent TTS calls per job.
	Parallelism int
}

// Coordinator drives episode scripts through synthesis to stored audio.
type Coordinator struct {
	synth    *synth.Service
	stitcher *stitch.Stitcher
	store    *objectstore.Store
	jobs     JobStore
	cfg      Config
	log      *slog.Logger
	wg       sync.WaitGroup
	// mu serializes read-modify-write cycles on job records so concurrent
	// progress updates cannot clobber each other.
	mu sync.Mutex
}

func New(synthSvc *synth.Service, stitcher *stitch.Stitcher, store *objectstore.Store, jobs JobStore, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		synth:    synthSvc,
		stitcher: stitcher,
		store:    store,
		jobs:     jobs,
		cfg:      cfg,
		log:      logger,
	}
}

// ProcessEpisode starts the pipeline for one script and returns the job ID
// immediately. Progress is observable through GetJob.
func (c *Coordinator) ProcessEpisode(ctx context.Context, script dialogue.EpisodeScript, sessionID string) (string, error) {
	job := SynthesisJob{
		JobID:        uuid.NewString(),
		SessionID:    sessionID,
		LessonNumber: script.LessonNumber,
		Status:       JobPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := c.jobs.SaveJob(job); err != nil {
		return "", err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(context.WithoutCancel(ctx), job.JobID, script)
	}()
	return job.JobID, nil
}

// GetJob returns the current state of a job.
func (c *Coordinator) GetJob(jobID string) (SynthesisJob, error) {
	return c.jobs.GetJob(jobID)
}

// Wait blocks until every in-flight job finishes. Used at shutdown and in
// tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// CleanupOldJobs removes terminal jobs older than maxAge and returns the
// count removed.
func (c *Coordinator) CleanupOldJobs(maxAge time.Duration) (int, error) {
	jobs, err := c.jobs.ListJobs()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, job := range jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			if err := c.jobs.DeleteJob(job.JobID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (c *Coordinator) run(ctx context.Context, jobID string, script dialogue.EpisodeScript) {
	log := c.log.With(slog.String("job_id", jobID), slog.Int("lesson", script.LessonNumber))

	c.advance(jobID, JobValidating, progressValidating)
	if err := dialogue.ValidateScript(script); err != nil {
		c.fail(jobID, err, log)
		return
	}

	c.advance(jobID, JobSynthesizing, progressValidating)
	results, err := c.synthesizeTurns(ctx, jobID, script)
	if err != nil {
		c.fail(jobID, err, log)
		return
	}

	c.advance(jobID, JobStitching, progressStitching)
	segments := make([]stitch.Segment, len(script.Turns))
	for i, turn := range script.Turns {
		segments[i] = stitch.Segment{Speaker: turn.Speaker, Audio: results[i].Audio}
	}
	track := c.stitcher.Normalize(c.stitcher.Stitch(segments))
	wavBytes, err := c.stitcher.EncodeWAVBytes(track)
	if err != nil {
		c.fail(jobID, err, log)
		return
	}

	c.advance(jobID, JobUploading, progressUploading)
	key := fmt.Sprintf("sessions/%s/lesson_%d.wav", c.mustJob(jobID).SessionID, script.LessonNumber)
	if _, err := c.store.Put(ctx, key, wavBytes); err != nil {
		c.fail(jobID, err, log)
		return
	}

	var chars int64
	for _, turn := range script.Turns {
		chars += int64(len(turn.Text))
	}
	c.mutate(jobID, func(job *SynthesisJob) {
		job.Status = JobCompleted
		job.ProgressPercent = progressCompleted
		job.AudioKey = key
		job.AudioURL = c.store.SignedURL(key)
		job.Duration = c.stitcher.Duration(track)
		job.CharactersUsed = chars
		job.EstimatedCost = c.synth.EstimateCost(chars)
	})
	log.Info("episode audio ready",
		slog.String("key", key),
		slog.Duration("duration", c.stitcher.Duration(track)))
}

// synthesizeTurns runs bounded-parallel TTS over the script's turns and
// returns results in turn order regardless of completion order.
func (c *Coordinator) synthesizeTurns(ctx context.Context, jobID string, script dialogue.EpisodeScript) ([]tts.Result, error) {
	results := make([]tts.Result, len(script.Turns))
	var done atomic.Int64
	total := int64(len(script.Turns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Parallelism)
	for i, turn := range script.Turns {
		g.Go(func() error {
			result, err := c.synth.SynthesizeTurn(gctx, turn)
			if err != nil {
				return err
			}
			results[i] = result
			n := done.Add(1)
			span := progressSynthCeil - progressValidating
			c.setProgress(jobID, progressValidating+int(int64(span)*n/total))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("synthesize episode: %w", err), errorsx.ReasonSynthesis)
	}
	return results, nil
}

func (c *Coordinator) advance(jobID string, status JobStatus, progress int) {
	c.mutate(jobID, func(job *SynthesisJob) {
		if !canTransition(job.Status, status) {
			return
		}
		job.Status = status
		if progress > job.ProgressPercent {
			job.ProgressPercent = progress
		}
	})
}

func (c *Coordinator) setProgress(jobID string, progress int) {
	c.mutate(jobID, func(job *SynthesisJob) {
		if progress > job.ProgressPercent {
			job.ProgressPercent = progress
		}
	})
}

func (c *Coordinator) fail(jobID string, err error, log *slog.Logger) {
	log.Error("synthesis job failed", slog.String("error", err.Error()))
	c.mutate(jobID, func(job *SynthesisJob) {
		if !canTransition(job.Status, JobFailed) {
			return
		}
		job.Status = JobFailed
		job.Error = err.Error()
	})
}

func (c *Coordinator) mutate(jobID string, fn func(*SynthesisJob)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, err := c.jobs.GetJob(jobID)
	if err != nil {
		return
	}
	fn(&job)
	job.UpdatedAt = time.Now()
	if err := c.jobs.SaveJob(job); err != nil {
		c.log.Error("persist job failed", slog.String("job_id", jobID), slog.String("error", err.Error()))
	}
}

func (c *Coordinator) mustJob(jobID string) SynthesisJob {
	job, _ := c.jobs.GetJob(jobID)
	return job
}
