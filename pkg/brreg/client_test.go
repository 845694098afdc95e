package brreg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadmatch/internal/resilience"
)

func testPolicy() resilience.Policy {
	return resilience.Policy{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     5 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func newTestClient(srv *httptest.Server, opts ...Option) Client {
	base := []Option{
		WithHTTPClient(srv.Client()),
		WithBaseURLs(srv.URL+"/enheter", srv.URL+"/regnskap"),
		WithPolicy(testPolicy()),
	}
	return NewClient(append(base, opts...)...)
}

func TestClient_Employees(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enheter/923609016", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organisasjonsnummer": "923609016", "antallAnsatte": 14}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv).Employees(context.Background(), "923609016")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(14), *got)
}

func TestClient_EmployeesMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"organisasjonsnummer": "923609016"}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv).Employees(context.Background(), "923609016")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_Revenue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/regnskap/923609016", r.URL.Path)
		_, _ = w.Write([]byte(`[{"regnskapsperiode": {"tilDato": "2023-12-31"},
			"resultatregnskapResultat": {"driftsresultat": {"driftsinntekter": {"sumDriftsinntekter": 48000000}}}}]`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv).Revenue(context.Background(), "923609016")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(48000000), *got)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"antallAnsatte": 3}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv).Employees(context.Background(), "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), *got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Revenue(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Employees(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_OtherClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Employees(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.Revenue(context.Background(), "1")
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = c.Employees(context.Background(), "1")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := testPolicy()
	p.MaxAttempts = 1
	c := newTestClient(srv,
		WithPolicy(p),
		WithCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute}),
	)

	for i := 0; i < 2; i++ {
		_, err := c.Employees(context.Background(), "1")
		require.Error(t, err)
	}
	_, err := c.Employees(context.Background(), "1")
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, int32(2), calls.Load())

	// The accounts endpoint has its own breaker.
	_, err = c.Revenue(context.Background(), "1")
	assert.False(t, errors.Is(err, resilience.ErrCircuitOpen))
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"antallAnsatte": 1}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv).Employees(ctx, "1")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"antallAnsatte": 1}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithRateLimit(1000))
	for i := 0; i < 5; i++ {
		_, err := c.Employees(context.Background(), "1")
		require.NoError(t, err)
	}
}

func TestNewHTTPClient_PoolSized(t *testing.T) {
	hc := NewHTTPClient(32)
	tr, ok := hc.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 32, tr.MaxConnsPerHost)
	assert.Equal(t, 32, tr.MaxIdleConnsPerHost)

	tr = NewHTTPClient(0).Transport.(*http.Transport)
	assert.Equal(t, 1, tr.MaxConnsPerHost)
}
