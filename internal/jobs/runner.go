// Package jobs runs batches of transcription jobs through a bounded worker
// pool, publishing progress events and recording history rows as files
// finish.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voxscribe/internal/audio"
	"voxscribe/internal/ffmpeg"
	"voxscribe/internal/store"
	"voxscribe/internal/transcript"
	"voxscribe/internal/whisper"
)

// Status tracks a job through its lifecycle.
type Status string

const (
	StatusPending      Status = "pending"
	StatusExtracting   Status = "extracting"
	StatusTranscribing Status = "transcribing"
	StatusWriting      Status = "writing"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
	StatusStopped      Status = "stopped"
)

var validTransitions = map[Status][]Status{
	StatusPending:      {StatusExtracting, StatusTranscribing, StatusFailed, StatusStopped},
	StatusExtracting:   {StatusTranscribing, StatusWriting, StatusFailed, StatusStopped},
	StatusTranscribing: {StatusWriting, StatusFailed, StatusStopped},
	StatusWriting:      {StatusDone, StatusFailed, StatusStopped},
	StatusDone:         {},
	StatusFailed:       {},
	StatusStopped:      {},
}

// ValidTransition reports whether a job may move from one status to another.
func ValidTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Job is the per-file record of a run.
type Job struct {
	ID       string
	Source   string
	Status   Status
	Language string        // detected, canonical code
	Text     string
	Duration time.Duration // source media length, zero when the probe fails
	Elapsed  time.Duration
	Outputs  []string
	Err      error
}

// JobError carries the stage a file failed in alongside the cause.
type JobError struct {
	Source string
	Stage  Status
	Err    error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Stage, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Request describes one batch run.
type Request struct {
	Files         []string
	OutputDir     string // empty writes next to each input
	Formats       []string
	Model         string // model name as recorded in history
	ModelPath     string
	Language      string // canonical code, empty means autodetect
	Task          string
	Device        string
	InitialPrompt string
	SpecifierMode string
	BeamSize      int
	BestOf        int
	Threads       int
	Workers       int
	KeepWAV       bool

	// OnEvent, when set, receives every published event. It is called from
	// worker goroutines and must be safe for concurrent use.
	OnEvent func(Event)
}

// Runner executes batch requests against one engine.
type Runner struct {
	engine     whisper.Engine
	ffmpegPath string
	store      *store.Store
	bus        *EventBus
	logger     *zap.Logger

	outMu sync.Mutex

	// Swapped out in tests.
	extract func(ctx context.Context, ffmpegPath, src, dst string, logger *zap.Logger) error
	analyze func(path string, thresholdDBFS float64) (bool, audio.Metrics, error)
	probe   func(ctx context.Context, ffmpegPath, src string) (time.Duration, error)
}

// NewRunner wires a runner. The store may be nil to skip history recording,
// the bus may be nil to get a private one.
func NewRunner(engine whisper.Engine, ffmpegPath string, st *store.Store, bus *EventBus, logger *zap.Logger) *Runner {
	if bus == nil {
		bus = NewEventBus(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		engine:     engine,
		ffmpegPath: ffmpegPath,
		store:      st,
		bus:        bus,
		logger:     logger,
		extract:    ffmpeg.ExtractAudio,
		analyze:    audio.IsSilentWAV,
		probe:      probeSourceDuration,
	}
}

// Bus exposes the event buffer for incremental reads.
func (r *Runner) Bus() *EventBus {
	return r.bus
}

// Run processes every file in the request through extract, transcribe and
// write stages. The first hard failure cancels files still in flight;
// transcripts already written stay on disk. The returned jobs mirror
// req.Files by index.
func (r *Runner) Run(ctx context.Context, req Request) ([]Job, error) {
	if r.engine == nil {
		return nil, errors.New("no transcription engine configured")
	}
	if len(req.Files) == 0 {
		return nil, errors.New("no input files given")
	}

	if req.Task == "" {
		req.Task = whisper.TaskTranscribe
	}
	formats := req.Formats
	if len(formats) == 0 {
		formats = transcript.DefaultFormats()
	}
	workers := req.Workers
	if workers <= 0 {
		workers = min(4, len(req.Files))
	}

	jobs := make([]Job, len(req.Files))
	for i, file := range req.Files {
		jobs[i] = Job{ID: uuid.NewString(), Source: file, Status: StatusPending}
	}

	run := &run{
		Runner:  r,
		req:     req,
		formats: formats,
		total:   len(jobs),
	}

	for i := range jobs {
		run.publish(Event{JobID: jobs[i].ID, Type: EventTypeStatus, Status: StatusPending, Source: jobs[i].Source})
	}

	r.logger.Info("starting batch",
		zap.Int("files", len(jobs)),
		zap.Int("workers", workers),
		zap.String("engine", r.engine.Name()),
		zap.String("task", req.Task),
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range jobs {
		i := i
		g.Go(func() error {
			return run.runOne(gCtx, &jobs[i])
		})
	}

	err := g.Wait()
	r.logger.Info("batch finished",
		zap.Int("done", countStatus(jobs, StatusDone)),
		zap.Int("failed", countStatus(jobs, StatusFailed)),
		zap.Int("stopped", countStatus(jobs, StatusStopped)),
	)
	return jobs, err
}

// run carries the per-batch state shared by the worker goroutines.
type run struct {
	*Runner
	req       Request
	formats   []string
	total     int
	completed atomic.Int64
}

func (r *run) runOne(ctx context.Context, job *Job) error {
	start := time.Now()
	err := r.process(ctx, job)
	job.Elapsed = time.Since(start)

	switch {
	case err == nil:
		r.setStatus(job, StatusDone)
		r.publish(Event{
			JobID:   job.ID,
			Type:    EventTypeResult,
			Source:  job.Source,
			Message: fmt.Sprintf("transcribed %s in %s", filepath.Base(job.Source), job.Elapsed.Round(time.Millisecond)),
			Outputs: job.Outputs,
		})
		r.record(ctx, job, store.StatusDone, "")
		r.progress(job)
		return nil

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		job.Err = err
		r.setStatus(job, StatusStopped)
		return err

	default:
		job.Err = &JobError{Source: job.Source, Stage: job.Status, Err: err}
		r.setStatus(job, StatusFailed)
		r.publish(Event{JobID: job.ID, Type: EventTypeError, Source: job.Source, Message: job.Err.Error()})
		r.record(ctx, job, store.StatusFailed, err.Error())
		r.progress(job)
		return job.Err
	}
}

func (r *run) publish(event Event) {
	event = r.bus.Publish(event)
	if r.req.OnEvent != nil {
		r.req.OnEvent(event)
	}
}

func (r *run) setStatus(job *Job, next Status) {
	if !ValidTransition(job.Status, next) {
		r.logger.Warn("invalid job transition",
			zap.String("source", job.Source),
			zap.String("from", string(job.Status)),
			zap.String("to", string(next)),
		)
		return
	}
	job.Status = next
	r.publish(Event{JobID: job.ID, Type: EventTypeStatus, Status: next, Source: job.Source})
}

func (r *run) logEvent(job *Job, message string) {
	r.publish(Event{JobID: job.ID, Type: EventTypeLog, Source: job.Source, Message: message})
}

func (r *run) progress(job *Job) {
	n := r.completed.Add(1)
	r.publish(Event{
		JobID:   job.ID,
		Type:    EventTypeProgress,
		Source:  job.Source,
		Message: fmt.Sprintf("%d/%d files processed", n, r.total),
	})
}

// record writes the history row. It survives batch cancellation so the row
// for the file that caused the abort still lands.
func (r *run) record(ctx context.Context, job *Job, status, errMessage string) {
	if r.store == nil {
		return
	}

	row := &store.Transcription{
		SourcePath:       job.Source,
		OutputDir:        r.outputDir(job.Source),
		Model:            r.req.Model,
		Task:             r.req.Task,
		Language:         r.req.Language,
		DetectedLanguage: job.Language,
		Status:           status,
		ErrorMessage:     errMessage,
		Duration:         job.Duration,
		Elapsed:          job.Elapsed,
		Formats:          strings.Join(r.formats, ","),
	}
	if err := r.store.RecordTranscription(context.WithoutCancel(ctx), row); err != nil {
		r.logger.Warn("failed to record history row", zap.String("source", job.Source), zap.Error(err))
	}
}

func (r *run) outputDir(source string) string {
	if r.req.OutputDir != "" {
		return r.req.OutputDir
	}
	return filepath.Dir(source)
}

func countStatus(jobs []Job, status Status) int {
	n := 0
	for i := range jobs {
		if jobs[i].Status == status {
			n++
		}
	}
	return n
}
