package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.Add(Check{Name: "goroutines", Func: passing})
	h.Add(Check{Name: "postgres", Kind: Readiness, Func: failing("refused")})

	// Readiness failures never affect liveness.
	for _, c := range h.snapshot() {
		for range 3 {
			c.run(context.Background())
		}
	}

	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.Add(Check{Name: "postgres", Kind: Readiness, Func: failing("connection refused")})

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())

	h.SetReady(true)
	assert.True(t, h.IsReady())
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)

	c := h.snapshot()[0]
	c.run(context.Background())
	c.run(context.Background())
	assert.True(t, h.IsReady(), "below failure threshold")

	c.run(context.Background())
	assert.False(t, h.IsReady())
	w = serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"postgres":"connection refused"}}`, w.Body.String())
}

func TestCheck_Recovery(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	h := New()
	h.Add(Check{
		Name:             "flaky",
		Kind:             Readiness,
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Func: func(context.Context) error {
			if fail.Load() {
				return errors.New("down")
			}
			return nil
		},
	})
	h.SetReady(true)
	c := h.snapshot()[0]

	c.run(context.Background())
	assert.False(t, h.IsReady())

	fail.Store(false)
	c.run(context.Background())
	assert.False(t, h.IsReady(), "needs two successes")
	c.run(context.Background())
	assert.True(t, h.IsReady())
}

func TestCheck_Timeout(t *testing.T) {
	h := New()
	h.Add(Check{
		Name:             "slow",
		Timeout:          10 * time.Millisecond,
		FailureThreshold: 1,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	h.snapshot()[0].run(context.Background())

	assert.Equal(t, http.StatusServiceUnavailable, serve(h.LiveEndpoint).Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Add(Check{Name: "count", Func: func(context.Context) error {
		calls.Add(1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, PingCheck(pinger{})(ctx))
	require.ErrorContains(t, PingCheck(pinger{err: errors.New("eof")})(ctx), "ping")

	require.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	require.Error(t, GoroutineCountCheck(0)(ctx))
}
