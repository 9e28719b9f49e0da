package dida

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a scripted TokenProvider: tokens are consumed in order and
// recoveries counted.
type stubProvider struct {
	tokens      []string
	tokenIdx    atomic.Int32
	recoverable bool
	recoveries  atomic.Int32
}

func (p *stubProvider) Token(_ context.Context) (string, error) {
	idx := int(p.tokenIdx.Add(1)) - 1
	if idx >= len(p.tokens) {
		idx = len(p.tokens) - 1
	}
	return p.tokens[idx], nil
}

func (p *stubProvider) HandleUnauthorized(_ context.Context) bool {
	p.recoveries.Add(1)
	return p.recoverable
}

func (p *stubProvider) RefreshCount() int { return int(p.recoveries.Load()) }
func (p *stubProvider) State() string { return "stub" }

func TestClientUnauthorizedRetry(t *testing.T) {
	t.Run("retries once after a recovered 401", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			w.Write([]byte(`[{"id":"p1","name":"Inbox"}]`))
		}))
		defer srv.Close()

		provider := &stubProvider{tokens: []string{"stale", "fresh"}, recoverable: true}
		projects, err := NewClient(srv.URL).ListProjects(context.Background(), provider)
		require.NoError(t, err)

		assert.Len(t, projects, 1)
		assert.Equal(t, "Inbox", projects[0].Name)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, 1, provider.RefreshCount())
	})

	t.Run("never retries more than once", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		provider := &stubProvider{tokens: []string{"t"}, recoverable: true}
		_, err := NewClient(srv.URL).ListProjects(context.Background(), provider)

		assert.True(t, IsUnauthorized(err))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry when recovery fails", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		provider := &stubProvider{tokens: []string{"t"}, recoverable: false}
		_, err := NewClient(srv.URL).ListProjects(context.Background(), provider)

		assert.True(t, IsUnauthorized(err))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("does not invoke recovery for non-401 failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		provider := &stubProvider{tokens: []string{"t"}, recoverable: true}
		_, err := NewClient(srv.URL).ListProjects(context.Background(), provider)

		require.Error(t, err)
		assert.Equal(t, 0, provider.RefreshCount())
	})
}

func TestClientCreateTask(t *testing.T) {
	t.Run("reports the retry on the result", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"id":"t1","projectId":"p1","title":"x"}`))
		}))
		defer srv.Close()

		provider := &stubProvider{tokens: []string{"stale", "fresh"}, recoverable: true}
		result, err := NewClient(srv.URL).CreateTask(context.Background(), provider, &TaskPayload{ProjectID: "p1", Title: "x"}, false)
		require.NoError(t, err)

		assert.True(t, result.Retried)
		assert.Equal(t, "t1", result.Task.ID)
		assert.JSONEq(t, `{"id":"t1","projectId":"p1","title":"x"}`, string(result.Task.Raw))
	})

	t.Run("issues the completion follow-up for completed tasks", func(t *testing.T) {
		var completeCalls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/open/v1/task" {
				w.Write([]byte(`{"id":"t1","projectId":"p1","title":"x"}`))
				return
			}
			assert.Equal(t, "/open/v1/project/p1/task/t1/complete", r.URL.Path)
			completeCalls.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		provider := &stubProvider{tokens: []string{"t"}}
		result, err := NewClient(srv.URL).CreateTask(context.Background(), provider, &TaskPayload{ProjectID: "p1", Title: "x"}, true)
		require.NoError(t, err)

		assert.True(t, result.Completed)
		assert.Empty(t, result.CompleteError)
		assert.Equal(t, int32(1), completeCalls.Load())
	})

	t.Run("a failed completion does not fail the creation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/open/v1/task" {
				w.Write([]byte(`{"id":"t1","projectId":"p1","title":"x"}`))
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		provider := &stubProvider{tokens: []string{"t"}}
		result, err := NewClient(srv.URL).CreateTask(context.Background(), provider, &TaskPayload{ProjectID: "p1", Title: "x"}, true)
		require.NoError(t, err)

		assert.False(t, result.Completed)
		assert.NotEmpty(t, result.CompleteError)
	})
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsRateLimit(&APIError{StatusCode: 429}))
	assert.True(t, IsRateLimit(&APIError{StatusCode: 500, Body: `{"errorCode":"exceed_query_limit"}`}))
	assert.False(t, IsRateLimit(&APIError{StatusCode: 500, Body: "boom"}))
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.False(t, IsNotFound(&APIError{StatusCode: 500}))
	assert.False(t, IsUnauthorized(assert.AnError))
}

func TestFetchTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open/v1/project/p1/task/t1", r.URL.Path)
		w.Write([]byte(`{"id":"t1","projectId":"p1","title":"x","status":2,"completedTime":"2026-03-05T10:00:00+0800"}`))
	}))
	defer srv.Close()

	provider := &stubProvider{tokens: []string{"t"}}
	task, err := NewClient(srv.URL).FetchTask(context.Background(), provider, "p1", "t1")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, task.Status)
	assert.NotEmpty(t, task.Raw)
}
