package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one periodic pass. now is the tick time in UTC.
type Job func(ctx context.Context, now time.Time) error

// ErrSkipped is returned by RunNow when the guard handed the run to another instance.
var ErrSkipped = errors.New("job held by another instance")

// Guard decides whether this instance runs a job on a given tick.
type Guard interface {
	Run(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error)
}

// LocalGuard always runs the job. Use it for single-instance deployments.
type LocalGuard struct{}

func (LocalGuard) Run(ctx context.Context, _ string, fn func(ctx context.Context) error) (bool, error) {
	return true, fn(ctx)
}

// Scheduler runs registered jobs on cron specs. A tick that fires while the
// previous run of the same job is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	guard   Guard
	timeout time.Duration
	log     *zerolog.Logger

	mu     sync.Mutex
	jobs   map[string]Job
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler builds a scheduler. Each run is bounded by timeout (default 5m).
func NewScheduler(guard Guard, timeout time.Duration, logger *zerolog.Logger) *Scheduler {
	if guard == nil {
		guard = LocalGuard{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	l := logger.With().Str("component", "Scheduler").Logger()
	cl := cronLogger{log: &l}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		guard:   guard,
		timeout: timeout,
		log:     &l,
		jobs:    make(map[string]Job),
		ctx:     context.Background(),
	}
}

// Add registers job under name on spec (e.g. "@every 10m").
func (s *Scheduler) Add(spec, name string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(s.baseCtx(), name, job) }); err != nil {
		return fmt.Errorf("schedule %q: %w", name, err)
	}
	s.jobs[name] = job
	return nil
}

// Start begins dispatching ticks. Calling Start twice has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parentCtx)
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow runs a registered job once, outside the timer, through the guard.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(ctx, name, job)
}

func (s *Scheduler) baseCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) error {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ran, err := s.guard.Run(runCtx, name, func(ctx context.Context) error {
		return job(ctx, time.Now().UTC())
	})
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		s.log.Info().Str("job", name).Msg("job cancelled")
	case err != nil:
		s.log.Error().Err(err).Str("job", name).Msg("job failed")
	case !ran:
		s.log.Debug().Str("job", name).Msg("job skipped on this instance")
		return ErrSkipped
	}
	return err
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{ log *zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
