package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notisync/pkg/apiclient"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...apiclient.Option) (*apiclient.Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL}, opts...)
	require.NoError(t, err)
	return client, srv
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	t.Run("empty base URL", func(t *testing.T) {
		t.Parallel()
		_, err := apiclient.New(apiclient.Config{})
		assert.Error(t, err)
	})

	t.Run("invalid base URL", func(t *testing.T) {
		t.Parallel()
		_, err := apiclient.New(apiclient.Config{BaseURL: "not a url"})
		assert.Error(t, err)
	})

	t.Run("valid base URL", func(t *testing.T) {
		t.Parallel()
		client, err := apiclient.New(apiclient.Config{BaseURL: "https://app.example.com"})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestClient_List(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/notifications/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 2, "type": "comment", "title": "New comment", "message": "m",
			 "from_user": {"id": 1, "username": "ava"}, "read": false,
			 "created_at": "2026-08-30T12:05:00Z"},
			{"id": 1, "type": "approval", "title": "Approved", "message": "m",
			 "from_user": {"id": 1, "username": "ava"}, "read": true,
			 "created_at": "2026-08-30T12:00:00Z"}
		]`))
	}))

	list, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.False(t, list[0].Read)
	assert.Equal(t, "ava", list[0].From.Username)
	assert.True(t, list[1].Read)
}

func TestClient_List_ServerError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.List(context.Background())
	require.Error(t, err)

	var srvErr *apiclient.ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, http.StatusInternalServerError, srvErr.Status)
	assert.True(t, apiclient.IsRetryable(err))
	assert.False(t, apiclient.IsAuthError(err))
}

func TestClient_List_AuthError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))

	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.True(t, apiclient.IsAuthError(err))
	assert.False(t, apiclient.IsRetryable(err), "auth errors must not be retried")
}

func TestClient_List_Timeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.List(context.Background())
	require.Error(t, err)

	var netErr *apiclient.NetworkError
	require.ErrorAs(t, err, &netErr, "a timeout is classified as a network error")
	assert.True(t, apiclient.IsRetryable(err))
}

func TestClient_List_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.List(context.Background())
	require.Error(t, err)

	var netErr *apiclient.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, apiclient.IsRetryable(err))
}

func TestClient_UnreadCount(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/unread-count/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count": 5}`))
	}))

	count, err := client.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestClient_MarkRead(t *testing.T) {
	t.Parallel()

	t.Run("success with csrf header", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/notifications/42/mark-read/", r.URL.Path)
			assert.Equal(t, "csrf-token", r.Header.Get("X-CSRFToken"))
			w.WriteHeader(http.StatusOK)
		}), apiclient.WithCSRFToken("csrf-token"))

		assert.NoError(t, client.MarkRead(context.Background(), 42))
	})

	t.Run("not found is already satisfied", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))

		assert.NoError(t, client.MarkRead(context.Background(), 42))
	})

	t.Run("server error propagates", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))

		err := client.MarkRead(context.Background(), 42)
		var srvErr *apiclient.ServerError
		require.ErrorAs(t, err, &srvErr)
		assert.Equal(t, http.StatusBadGateway, srvErr.Status)
	})
}

func TestClient_MarkAllRead(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/notifications/mark-all-read/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "success", "updated_count": 3}`))
	}))

	assert.NoError(t, client.MarkAllRead(context.Background()))
}

func TestClient_Delete(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/notifications/42/", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}))

		assert.NoError(t, client.Delete(context.Background(), 42))
	})

	t.Run("not found is already satisfied", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))

		assert.NoError(t, client.Delete(context.Background(), 42))
	})
}

func TestClient_StaticHeadersAndCookies(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session-id", r.Header.Get("X-Session"))
		cookie, err := r.Cookie("sessionid")
		require.NoError(t, err)
		assert.Equal(t, "abc", cookie.Value)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}),
		apiclient.WithHeader("X-Session", "session-id"),
		apiclient.WithCookie(&http.Cookie{Name: "sessionid", Value: "abc"}),
	)

	_, err := client.List(context.Background())
	assert.NoError(t, err)
}
