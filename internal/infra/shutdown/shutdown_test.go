package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

func TestHandler_ReverseOrder(t *testing.T) {
	h := NewHandler(time.Second)
	h.SetLogger(logger.Nop())

	var order []string
	for _, name := range []string{"http", "redis", "device"} {
		name := name
		h.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	h.Trigger()
	h.Trigger()
	require.NoError(t, h.Wait())
	assert.Equal(t, []string{"device", "redis", "http"}, order)

	select {
	case <-h.Done():
	default:
		t.Fatal("Done() not closed after Wait")
	}
}

func TestHandler_HookErrorsJoined(t *testing.T) {
	h := NewHandler(time.Second)
	boom := errors.New("boom")
	ran := false

	h.OnShutdown("last", func(context.Context) error { ran = true; return nil })
	h.OnShutdown("failing", func(context.Context) error { return boom })

	h.Trigger()
	err := h.Wait()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.True(t, ran, "later hooks still run after a failure")
}

func TestHandler_HookSeesTimeout(t *testing.T) {
	h := NewHandler(20 * time.Millisecond)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	h.Trigger()
	assert.ErrorIs(t, h.Wait(), context.DeadlineExceeded)
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second)
	called := make(chan struct{})
	h.OnShutdown("hook", func(context.Context) error {
		close(called)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	// Give Wait time to install the signal handler.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after SIGTERM")
	}
	<-called
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second)
	var mu sync.Mutex
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("n", func(context.Context) error {
				mu.Lock()
				count++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	h.Trigger()
	require.NoError(t, h.Wait())
	assert.Equal(t, 50, count)
}
