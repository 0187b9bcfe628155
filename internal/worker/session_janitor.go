package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// SessionPurger drops sessions that are past their expiry.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int, error)
}

// SessionJanitor compacts session storage on a cron schedule. Expiry is
// enforced on read regardless, so a missed sweep only costs space.
type SessionJanitor struct {
	purger SessionPurger
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	running bool
}

// NewSessionJanitor schedules sweeps using a standard cron spec or a
// descriptor such as "@every 5m".
func NewSessionJanitor(purger SessionPurger, schedule string, logger *slog.Logger) (*SessionJanitor, error) {
	cronLog := cronLogger{logger: logger}
	j := &SessionJanitor{
		purger: purger,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		runCtx: context.Background(),
	}
	if _, err := j.cron.AddFunc(schedule, j.tick); err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", schedule, err)
	}
	return j, nil
}

// Start launches the scheduler. ctx only carries values; the janitor runs
// until Stop.
func (j *SessionJanitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}

	j.runCtx, j.cancel = context.WithCancel(context.WithoutCancel(ctx))
	j.running = true
	j.cron.Start()
}

// Stop cancels an in-flight sweep and waits for it to return.
func (j *SessionJanitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.cancel()
	j.mu.Unlock()

	<-j.cron.Stop().Done()
}

// Sweep purges expired sessions once.
func (j *SessionJanitor) Sweep(ctx context.Context) {
	purged, err := j.purger.PurgeExpiredSessions(ctx)
	if err != nil {
		j.logger.Error("session sweep failed", slog.String("error", err.Error()))
		return
	}
	if purged > 0 {
		j.logger.Info("expired sessions purged", slog.Int("count", purged))
	}
}

func (j *SessionJanitor) tick() {
	j.mu.Lock()
	ctx := j.runCtx
	j.mu.Unlock()
	j.Sweep(ctx)
}

// cronLogger routes scheduler diagnostics to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
