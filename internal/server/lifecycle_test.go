package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockService struct {
	started atomic.Bool
	stopped atomic.Bool
	startFn func() error
	onStop  func()
}

func (m *mockService) Start() error {
	m.started.Store(true)
	if m.startFn != nil {
		return m.startFn()
	}
	for !m.stopped.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (m *mockService) Stop() {
	if m.onStop != nil {
		m.onStop()
	}
	m.stopped.Store(true)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestLifecycleStartsAndStopsServices(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), time.Second)

	svc1 := &mockService{}
	svc2 := &mockService{}
	lc.Add("svc1", svc1)
	lc.Add("svc2", svc2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lc.Run(ctx)
	}()

	waitFor(t, func() bool { return svc1.started.Load() && svc2.started.Load() },
		"services did not start in time")

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}

	assert.True(t, svc1.stopped.Load())
	assert.True(t, svc2.stopped.Load())
}

func TestLifecycleStopsInReverseOrder(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	first := &mockService{onStop: record("first")}
	second := &mockService{onStop: record("second")}
	lc.Add("first", first)
	lc.Add("second", second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lc.Run(ctx)
	}()

	waitFor(t, func() bool { return first.started.Load() && second.started.Load() },
		"services did not start in time")
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"second", "first"}, order)
}

func TestLifecycleServiceFailureTriggersShutdown(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), time.Second)

	boom := errors.New("listener exploded")
	failing := &mockService{startFn: func() error { return boom }}
	healthy := &mockService{}
	lc.Add("healthy", healthy)
	lc.Add("failing", failing)

	err := lc.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, healthy.stopped.Load())
}

func TestLifecycleAbandonsStuckService(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), 50*time.Millisecond)

	stuck := &mockService{onStop: func() { time.Sleep(5 * time.Second) }}
	polite := &mockService{}
	lc.Add("polite", polite)
	lc.Add("stuck", stuck)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lc.Run(ctx)
	}()

	waitFor(t, func() bool { return polite.started.Load() && stuck.started.Load() },
		"services did not start in time")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown blocked on the stuck service")
	}
	assert.True(t, polite.stopped.Load())
}

func TestFuncService(t *testing.T) {
	started := false
	stopped := false

	svc := &FuncService{
		StartFn: func() error {
			started = true
			return nil
		},
		StopFn: func() {
			stopped = true
		},
	}

	require.NoError(t, svc.Start())
	assert.True(t, started)

	svc.Stop()
	assert.True(t, stopped)
}
