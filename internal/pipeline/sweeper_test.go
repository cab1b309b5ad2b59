package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepCaches(context.Context) (pipeline.SweepResult, error) {
	c.calls.Add(1)
	return pipeline.SweepResult{Profile: 2}, c.err
}

func TestSweeper_RunsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &countingSweeper{err: errors.New("backend down")}
	s := pipeline.NewSweeper(target, time.Hour, clock, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := int32(1); i <= 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Hour)
		want := i
		assert.Eventually(t, func() bool { return target.calls.Load() == want }, time.Second, 5*time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestSweeper_DisabledInterval(t *testing.T) {
	target := &countingSweeper{}
	s := pipeline.NewSweeper(target, 0, nil, discardLogger())
	require.NoError(t, s.Run(context.Background()))
	assert.Zero(t, target.calls.Load())
}
