package eventloop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startLoop(t *testing.T) (*Loop, <-chan error) {
	t.Helper()
	l := New(zap.NewNop())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()
	t.Cleanup(l.Quit)
	return l, errc
}

func TestLoop_DispatchesInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("events not dispatched")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_QuitStopsRun(t *testing.T) {
	l, errc := startLoop(t)
	l.Quit()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Quit")
	}
	assert.False(t, l.Post(func() {}))
}

func TestLoop_ContextCancelStopsRun(t *testing.T) {
	l := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoop_PanicDoesNotKillLoop(t *testing.T) {
	l, _ := startLoop(t)
	l.Post(func() { panic("boom") })

	v, err := Call(context.Background(), l, func() int { return 7 })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestAsync_DeliversOnLoop(t *testing.T) {
	l, _ := startLoop(t)

	var inLoop atomic.Bool
	got := make(chan error, 1)
	Async(l, context.Background(),
		func(context.Context) (string, error) { return "", errors.New("nope") },
		func(_ string, err error) {
			inLoop.Store(true)
			got <- err
		},
	)

	select {
	case err := <-got:
		assert.EqualError(t, err, "nope")
		assert.True(t, inLoop.Load())
	case <-time.After(time.Second):
		t.Fatal("async completion not delivered")
	}
}

func TestCall_AfterQuit(t *testing.T) {
	l := New(zap.NewNop())
	l.Quit()
	_, err := Call(context.Background(), l, func() int { return 1 })
	assert.ErrorIs(t, err, ErrStopped)
}
