package shutdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShutdownWaitsForGoroutines(t *testing.T) {
	c := New(context.Background())

	started := make(chan struct{})
	finished := make(chan struct{})
	c.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		close(finished)
	})
	<-started

	err := c.Shutdown(context.Background())
	require.NoError(t, err)

	select {
	case <-finished:
	default:
		t.Fatal("Shutdown returned before the goroutine finished")
	}
}

func TestShutdownCancelsContext(t *testing.T) {
	c := New(context.Background())
	require.NoError(t, c.Context().Err())

	done := make(chan struct{})
	c.Go(func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})

	require.NoError(t, c.Shutdown(context.Background()))
	<-done
}

func TestShutdownReturnsEarlyOnTimeout(t *testing.T) {
	c := New(context.Background())
	c.Go(func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	err := c.Shutdown(ctx)
	require.Error(t, err)
}
