package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"bqgate/internal/domain"
	"bqgate/internal/query"
)

// ─────────────────────────────────────────────────────────────
// Snapshot Service: entity pages written to files on a trigger
// ─────────────────────────────────────────────────────────────

var (
	ErrUnknownJob = errors.New("unknown snapshot job")
	ErrJobRunning = errors.New("snapshot job already running")
)

const (
	snapshotTimeout  = 5 * time.Minute
	watchDebounce    = 500 * time.Millisecond
	EventSnapshotOK  = "snapshot:completed"
	EventSnapshotErr = "snapshot:failed"
)

// EntityFetcher serves entity pages. *GatewayService implements it.
type EntityFetcher interface {
	Fetch(ctx context.Context, entity string, p query.Params) (*FetchResult, error)
}

// SnapshotService runs snapshot jobs by hand, on a cron schedule, or when a
// watched file changes.
type SnapshotService struct {
	jobs    map[string]domain.SnapshotJob
	fetcher EntityFetcher
	store   domain.SnapshotRunStore // may be nil
	fs      afero.Fs
	emitter EventEmitter
	log     *zap.Logger

	runningJobs runningJobsGuard

	mu          sync.Mutex
	cronSched   *cron.Cron
	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
}

// NewSnapshotService creates a SnapshotService. store may be nil, in which
// case run history is not kept.
func NewSnapshotService(
	jobs []domain.SnapshotJob,
	fetcher EntityFetcher,
	store domain.SnapshotRunStore,
	fs afero.Fs,
	emitter EventEmitter,
	log *zap.Logger,
) *SnapshotService {
	if log == nil {
		log = zap.NewNop()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if emitter == nil {
		emitter = LogEmitter{Log: log}
	}
	return &SnapshotService{
		jobs:    lo.KeyBy(jobs, func(j domain.SnapshotJob) string { return j.Name }),
		fetcher: fetcher,
		store:   store,
		fs:      fs,
		emitter: emitter,
		log:     log,
	}
}

// Jobs returns the configured jobs ordered by name.
func (s *SnapshotService) Jobs() []domain.SnapshotJob {
	jobs := lo.Values(s.jobs)
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// RunJob fetches the job's entity page and writes the envelope to its
// output file. The returned run is also recorded in the run store.
func (s *SnapshotService) RunJob(ctx context.Context, name string) (*domain.SnapshotRun, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	// Prevent concurrent execution of the same job.
	if !s.runningJobs.TryLock(name) {
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	defer s.runningJobs.Unlock(name)

	run := &domain.SnapshotRun{
		JobName:    name,
		Status:     "running",
		OutputPath: job.Output,
		StartedAt:  time.Now(),
	}
	if s.store != nil {
		if err := s.store.CreateRun(run); err != nil {
			s.log.Warn("snapshot run log failed", zap.String("job", name), zap.Error(err))
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	runErr := s.execute(runCtx, job, run)

	finished := time.Now()
	run.FinishedAt = &finished
	run.DurationMs = int(finished.Sub(run.StartedAt).Milliseconds())
	run.Status = "success"
	if runErr != nil {
		run.Status = "error"
		run.Error = runErr.Error()
	}
	if s.store != nil {
		if err := s.store.UpdateRun(run); err != nil {
			s.log.Warn("snapshot run log failed", zap.String("job", name), zap.Error(err))
		}
	}

	if runErr != nil {
		s.log.Error("snapshot failed", zap.String("job", name), zap.Error(runErr))
		s.emitter.Emit(ctx, EventSnapshotErr, map[string]string{"job": name, "error": run.Error})
		return run, runErr
	}
	s.log.Info("snapshot written",
		zap.String("job", name),
		zap.String("output", run.OutputPath),
		zap.Int("rows", run.Rows),
	)
	s.emitter.Emit(ctx, EventSnapshotOK, map[string]any{"job": name, "rows": run.Rows, "output": run.OutputPath})
	return run, nil
}

func (s *SnapshotService) execute(ctx context.Context, job domain.SnapshotJob, run *domain.SnapshotRun) error {
	if job.Output == "" {
		return fmt.Errorf("job %s has no output path", job.Name)
	}
	res, err := s.fetcher.Fetch(ctx, job.Entity, query.Params{
		Filter:    job.Filter,
		OrderBy:   job.OrderBy,
		PageSize:  job.PageSize,
		PageToken: job.PageToken,
	})
	if err != nil {
		return err
	}
	run.Query = res.Query
	run.Rows = res.Rows

	if dir := filepath.Dir(job.Output); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	tmp := job.Output + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, res.Body, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := s.fs.Rename(tmp, job.Output); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("move snapshot into place: %w", err)
	}
	return nil
}

// ListRuns returns recent runs of a job, newest first.
func (s *SnapshotService) ListRuns(name string, limit int) ([]domain.SnapshotRun, error) {
	if _, ok := s.jobs[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRuns(name, limit)
}

// ── Triggers ───────────────────────────────────────────────

// RestartWatchers tears down the current watcher/cron and rebuilds them from
// the configured jobs.
func (s *SnapshotService) RestartWatchers(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatchers()

	var errs []error

	// ── Cron jobs ──
	cronJobs := lo.Filter(s.Jobs(), func(j domain.SnapshotJob, _ int) bool {
		return j.Trigger == domain.SnapshotTriggerCron && j.Schedule != ""
	})
	if len(cronJobs) > 0 {
		c := cron.New()
		for _, j := range cronJobs {
			name := j.Name
			_, err := c.AddFunc(j.Schedule, func() {
				s.log.Info("snapshot cron: running job", zap.String("job", name))
				if _, err := s.RunJob(ctx, name); err != nil && !errors.Is(err, ErrJobRunning) {
					s.log.Warn("snapshot cron: job failed", zap.String("job", name), zap.Error(err))
				}
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("job %s: invalid schedule %q: %w", name, j.Schedule, err))
			}
		}
		c.Start()
		s.cronSched = c
		s.log.Info("snapshot cron: scheduled", zap.Int("jobs", len(cronJobs)))
	}

	// ── File watchers ──
	watchJobs := lo.Filter(s.Jobs(), func(j domain.SnapshotJob, _ int) bool {
		return j.Trigger == domain.SnapshotTriggerWatch && j.WatchPath != ""
	})
	if len(watchJobs) == 0 {
		return errors.Join(errs...)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		errs = append(errs, fmt.Errorf("create watcher: %w", err))
		return errors.Join(errs...)
	}
	s.watcher = watcher

	pathToJob := make(map[string]string)
	watchedDirs := make(map[string]bool)
	for _, j := range watchJobs {
		absPath, err := filepath.Abs(j.WatchPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("job %s: bad watch path %q: %w", j.Name, j.WatchPath, err))
			continue
		}
		pathToJob[absPath] = j.Name

		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				errs = append(errs, fmt.Errorf("job %s: watch %q: %w", j.Name, dir, err))
			} else {
				watchedDirs[dir] = true
			}
		}
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	go s.watchLoop(ctx, watchCtx, watcher, pathToJob)

	s.log.Info("snapshot watcher: watching", zap.Int("files", len(pathToJob)))
	return errors.Join(errs...)
}

func (s *SnapshotService) watchLoop(ctx, watchCtx context.Context, watcher *fsnotify.Watcher, pathToJob map[string]string) {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()
	for {
		select {
		case <-watchCtx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			name, ok := pathToJob[absPath]
			if !ok {
				continue
			}
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(watchDebounce, func() {
				s.log.Info("snapshot watcher: file changed", zap.String("path", absPath), zap.String("job", name))
				if _, err := s.RunJob(ctx, name); err != nil && !errors.Is(err, ErrJobRunning) {
					s.log.Warn("snapshot watcher: run failed", zap.String("job", name), zap.Error(err))
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("snapshot watcher: error", zap.Error(err))
		}
	}
}

// Running returns the names of jobs currently in flight.
func (s *SnapshotService) Running() []string {
	return s.runningJobs.Running()
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *SnapshotService) WaitRunning(ctx context.Context) {
	s.runningJobs.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *SnapshotService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatchers()
}

func (s *SnapshotService) stopWatchers() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
