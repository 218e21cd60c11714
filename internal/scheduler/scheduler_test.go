package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestTickSkipsWhileRunning(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	job := &Job{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(_ context.Context) (int, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			return 1, nil
		},
	}
	s := New(newTestLogger(), job)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tick(context.Background(), job)
	}()
	<-started

	// Второй тик застаёт первый в полёте и пропускается, не дожидаясь его.
	s.tick(context.Background(), job)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	wg.Wait()

	// После завершения тика задача снова доступна.
	s.tick(context.Background(), job)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTickReleasesFlagOnFailure(t *testing.T) {
	job := &Job{
		Name:     "failing",
		Interval: time.Hour,
		Run: func(_ context.Context) (int, error) {
			return 0, assert.AnError
		},
	}
	s := New(newTestLogger(), job)

	s.tick(context.Background(), job)
	assert.False(t, job.running.Load())

	// Сбой не блокирует следующий тик.
	s.tick(context.Background(), job)
	assert.False(t, job.running.Load())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	var calls atomic.Int32
	job := &Job{
		Name:     "fast",
		Interval: 10 * time.Millisecond,
		Run: func(_ context.Context) (int, error) {
			calls.Add(1)
			return 0, nil
		},
	}
	s := New(newTestLogger(), job)
	s.Register(prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
	// Стартовый тик плюс хотя бы один по тикеру.
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}
