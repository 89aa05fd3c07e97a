package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SchedulerResult summarizes one scheduler pass
type SchedulerResult struct {
	Started        int `json:"started"`
	Cancelled      int `json:"cancelled"`
	RoundsAdvanced int `json:"rounds_advanced"`
}

// CronService starts due sessions and advances expired rounds on a fixed interval
type CronService struct {
	sessions *SessionService
	interval time.Duration

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	doneChan  chan struct{}

	pendingRun   bool
	pendingRunMu sync.Mutex
	wake         chan struct{}
}

// NewCronService creates a scheduler over sessions
func NewCronService(sessions *SessionService, interval time.Duration) *CronService {
	return &CronService{
		sessions: sessions,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the scheduler loop. Calling Start twice is a no-op.
func (c *CronService) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		slog.Warn("scheduler is already running")
		return
	}
	c.isRunning = true
	c.stopChan = make(chan struct{})
	c.doneChan = make(chan struct{})
	slog.Info("starting session scheduler", "interval", c.interval.String())

	go c.loop(ctx, c.stopChan, c.doneChan)
}

func (c *CronService) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer c.markStopped(stop)
	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	for {
		if _, err := c.RunOnce(ctx); err != nil {
			slog.Error("scheduler pass failed", "error", err)
		}

		// run again right away if a rerun was requested during the pass
		c.pendingRunMu.Lock()
		rerun := c.pendingRun
		c.pendingRun = false
		c.pendingRunMu.Unlock()
		if rerun {
			select {
			case <-stop:
				slog.Info("session scheduler stopped")
				return
			case <-ctx.Done():
				slog.Info("session scheduler stopped", "reason", ctx.Err())
				return
			default:
			}
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(c.interval)
		select {
		case <-stop:
			slog.Info("session scheduler stopped")
			return
		case <-ctx.Done():
			slog.Info("session scheduler stopped", "reason", ctx.Err())
			return
		case <-c.wake:
			c.pendingRunMu.Lock()
			c.pendingRun = false
			c.pendingRunMu.Unlock()
		case <-timer.C:
		}
	}
}

// markStopped clears the running flag when the loop owning stop exits on its own
func (c *CronService) markStopped(stop <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopChan == stop {
		c.isRunning = false
	}
}

// Stop ends the loop and waits for the current pass to finish
func (c *CronService) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	close(c.stopChan)
	done := c.doneChan
	c.mu.Unlock()
	<-done
}

// IsRunning reports whether the loop is active
func (c *CronService) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}

// RequestRun asks the loop for an immediate extra pass
func (c *CronService) RequestRun() {
	c.pendingRunMu.Lock()
	c.pendingRun = true
	c.pendingRunMu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// RunOnce performs a single pass: start due sessions, then advance expired rounds
func (c *CronService) RunOnce(ctx context.Context) (SchedulerResult, error) {
	startTime := time.Now()
	var result SchedulerResult

	started, cancelled, err := c.sessions.StartDueSessions(ctx)
	if err != nil {
		return result, err
	}
	result.Started, result.Cancelled = started, cancelled

	advanced, err := c.sessions.AdvanceExpiredRounds(ctx)
	if err != nil {
		return result, err
	}
	result.RoundsAdvanced = advanced

	if started+cancelled+advanced > 0 {
		slog.Info("scheduler pass completed", "started", started, "cancelled", cancelled,
			"rounds_advanced", advanced, "duration", time.Since(startTime).String())
	}
	return result, nil
}
