package queue

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

// ErrJobNotFound is returned for ids the registry and its store do not know.
var ErrJobNotFound = errors.New("job not found")

// Job represents one video-to-podcast run
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	Source      string // URL for youtube, local audio path otherwise
	TargetLang  string
	Host        string
	Guest       string
	Backend     string

	Status    string
	Stage     string
	Error     error
	Result    *types.PipelineResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a new job with default values
func NewJob(id, requestName, sourceType, source string) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		Source:      source,
		Status:      types.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) record() types.JobRecord {
	rec := types.JobRecord{
		ID:          j.ID,
		RequestName: j.RequestName,
		SourceType:  j.SourceType,
		Source:      j.Source,
		TargetLang:  j.TargetLang,
		Backend:     j.Backend,
		Status:      j.Status,
		Stage:       j.Stage,
		Result:      j.Result,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.Error != nil {
		rec.Error = j.Error.Error()
	}
	return rec
}

// JobStore persists job records. storage.MetadataDB implements it.
type JobStore interface {
	SaveJob(rec types.JobRecord) error
	GetJob(id string) (*types.JobRecord, error)
	ListJobs(limit int) ([]types.JobRecord, error)
}

// Registry tracks live jobs, mirrors every change into the store and fans
// snapshots out to watchers. With a store, finished jobs leave memory once
// their final state is persisted and are served from the store after that.
type Registry struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	store    JobStore
	watchers map[string][]chan types.JobRecord
}

// NewRegistry creates a registry; store may be nil for in-memory use.
func NewRegistry(store JobStore) *Registry {
	return &Registry{
		jobs:     make(map[string]*Job),
		store:    store,
		watchers: make(map[string][]chan types.JobRecord),
	}
}

// Add registers a new job.
func (r *Registry) Add(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	r.publishLocked(job)
}

// Update applies fn to the job under the registry lock, then persists and
// publishes the new state. Terminal jobs are not modified again.
func (r *Registry) Update(id string, fn func(*Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || types.IsTerminal(job.Status) {
		return false
	}
	fn(job)
	job.UpdatedAt = time.Now()
	persisted := r.publishLocked(job)
	if types.IsTerminal(job.Status) {
		r.closeWatchersLocked(id)
		if persisted {
			delete(r.jobs, id)
		}
	}
	return true
}

// SetStage records the pipeline stage of a running job.
func (r *Registry) SetStage(id, stage string) {
	r.Update(id, func(j *Job) {
		j.Status = types.StatusProcessing
		j.Stage = stage
	})
}

// Complete marks a job COMPLETED with its result.
func (r *Registry) Complete(id string, result *types.PipelineResult) {
	r.Update(id, func(j *Job) {
		j.Status = types.StatusCompleted
		j.Stage = ""
		j.Result = result
	})
}

// Fail marks a job FAILED; the stage it failed in is kept.
func (r *Registry) Fail(id string, err error) {
	r.Update(id, func(j *Job) {
		j.Status = types.StatusFailed
		j.Error = err
	})
}

// publishLocked reports whether the snapshot reached the store.
func (r *Registry) publishLocked(job *Job) bool {
	rec := job.record()
	persisted := false
	if r.store != nil {
		if err := r.store.SaveJob(rec); err != nil {
			slog.Error("failed to persist job", slog.String("job_id", job.ID), slog.Any("error", err))
		} else {
			persisted = true
		}
	}
	for _, ch := range r.watchers[job.ID] {
		// keep only the newest snapshot when a watcher lags
		select {
		case ch <- rec:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- rec:
			default:
			}
		}
	}
	return persisted
}

func (r *Registry) closeWatchersLocked(id string) {
	for _, ch := range r.watchers[id] {
		close(ch)
	}
	delete(r.watchers, id)
}

// Get returns a snapshot of a job, falling back to the store for jobs from
// earlier runs.
func (r *Registry) Get(id string) (types.JobRecord, error) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if ok {
		rec := job.record()
		r.mu.Unlock()
		return rec, nil
	}
	r.mu.Unlock()

	if r.store != nil {
		rec, err := r.store.GetJob(id)
		if err == nil {
			return *rec, nil
		}
		slog.Debug("job lookup in store failed", slog.String("job_id", id), slog.Any("error", err))
	}
	return types.JobRecord{}, ErrJobNotFound
}

// List returns up to limit jobs, newest first.
func (r *Registry) List(limit int) ([]types.JobRecord, error) {
	if r.store != nil {
		return r.store.ListJobs(limit)
	}

	r.mu.Lock()
	recs := make([]types.JobRecord, 0, len(r.jobs))
	for _, j := range r.jobs {
		recs = append(recs, j.record())
	}
	r.mu.Unlock()

	sort.Slice(recs, func(a, b int) bool { return recs[a].CreatedAt.After(recs[b].CreatedAt) })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Watch streams snapshots of a job. The first value is the current state;
// the channel is closed once the job reaches a terminal status or cancel is
// called. ok is false for unknown jobs.
func (r *Registry) Watch(id string) (updates <-chan types.JobRecord, cancel func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, found := r.jobs[id]
	if !found {
		return nil, nil, false
	}

	ch := make(chan types.JobRecord, 8)
	ch <- job.record()
	if types.IsTerminal(job.Status) {
		close(ch)
		return ch, func() {}, true
	}

	r.watchers[id] = append(r.watchers[id], ch)
	var once sync.Once
	cancel = func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			list := r.watchers[id]
			for i, c := range list {
				if c == ch {
					r.watchers[id] = append(list[:i], list[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}
	return ch, cancel, true
}
