package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/santyhornia-creator/hibot-etl-script/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	calls   atomic.Int32
	block   chan struct{}
	runErr  error
	summary services.RunSummary
}

func (s *stubRunner) RunOnce(ctx context.Context) (services.RunSummary, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return s.summary, s.runErr
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		runner   SyncRunner
		interval int
	}{
		{name: "nil runner", runner: nil, interval: 15},
		{name: "zero interval", runner: &stubRunner{}, interval: 0},
		{name: "interval of a full hour", runner: &stubRunner{}, interval: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.runner, tt.interval)
			assert.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestRunSyncsOnceAtStartup(t *testing.T) {
	runner := &stubRunner{}
	s, err := New(runner, 15)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return runner.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestRunJobSkipsWhenPreviousRunActive(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	s, err := New(runner, 15)
	require.NoError(t, err)

	go s.runJob()
	assert.Eventually(t, func() bool {
		return runner.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// A second tick while the first run is blocked must not start another.
	s.runJob()
	assert.Equal(t, int32(1), runner.calls.Load())

	close(runner.block)
}
