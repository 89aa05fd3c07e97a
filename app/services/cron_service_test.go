package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"speeddating/app/models"
)

func TestCronService_RunOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.createSession(t, 4)
	env.fill(t, s.ID, 2)
	env.createSession(t, 4)
	env.clock.Advance(2 * time.Hour)

	cron := NewCronService(env.sessions, time.Minute)
	result, err := cron.RunOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Started != 1 || result.Cancelled != 1 || result.RoundsAdvanced != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, _ := env.store.GetSession(ctx, s.ID)
	if got.Status != models.SessionStatusInProgress || len(got.PairingsForRound(1)) != 1 {
		t.Fatalf("expected the session to be running with one pairing, got %+v", got)
	}

	env.clock.Advance(time.Duration(got.RoundDurationMinutes) * time.Minute)
	result, err = cron.RunOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RoundsAdvanced != 1 {
		t.Fatalf("expected one advanced round, got %+v", result)
	}
	got, _ = env.store.GetSession(ctx, s.ID)
	if got.Status != models.SessionStatusCompleted {
		t.Fatalf("expected the single-round session to complete, got %s", got.Status)
	}
}

func TestCronService_StartStop(t *testing.T) {
	env := newTestEnv(t)
	cron := NewCronService(env.sessions, time.Hour)

	cron.Start(context.Background())
	cron.Start(context.Background())
	if !cron.IsRunning() {
		t.Fatal("expected scheduler to be running")
	}
	cron.RequestRun()
	cron.Stop()
	if cron.IsRunning() {
		t.Fatal("expected scheduler to be stopped")
	}
	cron.Stop()
}

func TestCronService_StopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	cron := NewCronService(env.sessions, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cron.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		cron.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestCronService_ContextCancelClearsRunning(t *testing.T) {
	env := newTestEnv(t)
	cron := NewCronService(env.sessions, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cron.Start(ctx)
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for cron.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("expected the scheduler to report stopped after context cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cron.Start(context.Background())
	if !cron.IsRunning() {
		t.Fatal("expected the scheduler to restart")
	}
	cron.Stop()
}

func TestCronService_StopDuringReruns(t *testing.T) {
	env := newTestEnv(t)
	cron := NewCronService(env.sessions, time.Hour)
	cron.Start(context.Background())

	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-quit:
				return
			default:
				cron.RequestRun()
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		cron.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop while reruns kept arriving")
	}
	close(quit)
	wg.Wait()
}
