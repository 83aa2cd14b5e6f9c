package helix

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/streamscout/internal/adapters/upstream"
)

// fakeHelix serves the token, games, top and streams endpoints.
type fakeHelix struct {
	tokenStatus  int
	probeDelay   time.Duration
	streamStatus int
	topPages     int
	streamCalls  atomic.Int32
}

func (f *fakeHelix) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			_, _ = w.Write([]byte(`{"message":"invalid client secret"}`))
			return
		}
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/helix/games", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "cid", r.Header.Get("Client-Id"))
		var parts []string
		for i, n := range r.URL.Query()["name"] {
			if n == "Unknown Game" {
				continue
			}
			parts = append(parts, fmt.Sprintf(`{"id":"%d","name":%q,"box_art_url":"https://x/%d-{width}x{height}.jpg"}`, i+1, n, i+1))
		}
		fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(parts, ","))
	})
	mux.HandleFunc("/helix/games/top", func(w http.ResponseWriter, r *http.Request) {
		page := 0
		if after := r.URL.Query().Get("after"); after != "" {
			_, _ = fmt.Sscanf(after, "page-%d", &page)
		}
		first := r.URL.Query().Get("first")
		cursor := ""
		if page+1 < f.topPages {
			cursor = fmt.Sprintf("page-%d", page+1)
		}
		fmt.Fprintf(w, `{"data":[{"id":"t%d-a","name":"A%d"},{"id":"t%d-b","name":"B%d"}],"pagination":{"cursor":%q},"first":%q}`,
			page, page, page, page, cursor, first)
	})
	mux.HandleFunc("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("game_id") == "" {
			time.Sleep(f.probeDelay)
			_, _ = w.Write([]byte(`{"data":[{"id":"s0","viewer_count":1}]}`))
			return
		}
		f.streamCalls.Add(1)
		w.Header().Set("Ratelimit-Remaining", "797")
		switch f.streamStatus {
		case 0:
		case http.StatusTooManyRequests:
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		default:
			w.WriteHeader(f.streamStatus)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		assert.Equal(t, "100", r.URL.Query().Get("first"))
		_, _ = w.Write([]byte(`{"data":[{"id":"s1","user_name":"a","viewer_count":120},{"id":"s2","user_name":"b","viewer_count":7}]}`))
	})
	return mux
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(srv.URL + "/helix/"),
		WithAuthURL(srv.URL + "/oauth2/token"),
		WithRetry(0, time.Millisecond, time.Millisecond),
		WithWarmupDelay(0),
		WithHandshakeTimeout(2 * time.Second),
	}
	return New("cid", "secret", append(base, opts...)...)
}

func TestConnectAndCollect(t *testing.T) {
	fake := &fakeHelix{topPages: 3}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	ctx := context.Background()
	sess, err := newTestClient(srv).Connect(ctx)
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()

	entities, err := sess.Validate(ctx, []string{"Hades", "Unknown Game", "Celeste"})
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Hades", entities[0].Name)
	assert.Equal(t, "https://x/1-{width}x{height}.jpg", entities[0].BoxArtURL)
	assert.Equal(t, "Celeste", entities[1].Name)

	broadcasts, err := sess.ListBroadcasts(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, broadcasts, 2)
	assert.Equal(t, 120, broadcasts[0].ViewerCount)
	assert.Equal(t, "a", broadcasts[0].UserName)

	top, err := sess.ListTop(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Equal(t, "t0-a", top[0].ID)
	assert.Equal(t, "t2-a", top[4].ID)

	all, err := sess.ListTop(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 6, "pagination stops when the cursor runs out")
}

func TestValidateBatchLimit(t *testing.T) {
	srv := httptest.NewServer((&fakeHelix{}).handler(t))
	defer srv.Close()

	sess, err := newTestClient(srv).Connect(context.Background())
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()

	names := make([]string, MaxPerCall+1)
	for i := range names {
		names[i] = fmt.Sprintf("g%d", i)
	}
	_, err = sess.Validate(context.Background(), names)
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	got, err := sess.Validate(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestCallClassification(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		srv := httptest.NewServer((&fakeHelix{streamStatus: http.StatusTooManyRequests}).handler(t))
		defer srv.Close()

		sess, err := newTestClient(srv).Connect(context.Background())
		require.NoError(t, err)
		_, err = sess.ListBroadcasts(context.Background(), "1", 100)

		var rl *upstream.RateLimitedError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, 3*time.Second, rl.RetryAfter)
		var ce *upstream.CallError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, opListBroadcasts, ce.Op)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer((&fakeHelix{streamStatus: http.StatusBadGateway}).handler(t))
		defer srv.Close()

		sess, err := newTestClient(srv).Connect(context.Background())
		require.NoError(t, err)
		_, err = sess.ListBroadcasts(context.Background(), "1", 100)

		var ce *upstream.CallError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, http.StatusBadGateway, ce.Status)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("closed session", func(t *testing.T) {
		srv := httptest.NewServer((&fakeHelix{}).handler(t))
		defer srv.Close()

		sess, err := newTestClient(srv).Connect(context.Background())
		require.NoError(t, err)
		require.NoError(t, sess.Close())
		require.NoError(t, sess.Close())

		_, err = sess.ListBroadcasts(context.Background(), "1", 100)
		assert.ErrorIs(t, err, ErrSessionClosed)
	})
}

func TestHandshakeFailures(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		_, err := New("", "secret").Connect(context.Background())
		assert.ErrorIs(t, err, upstream.ErrAuth)
		assert.ErrorIs(t, New("id", " ").CheckCredentials(), upstream.ErrAuth)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv := httptest.NewServer((&fakeHelix{tokenStatus: http.StatusForbidden}).handler(t))
		defer srv.Close()

		_, err := newTestClient(srv).Connect(context.Background())
		assert.ErrorIs(t, err, upstream.ErrAuth)
	})

	t.Run("slow probe", func(t *testing.T) {
		srv := httptest.NewServer((&fakeHelix{probeDelay: 300 * time.Millisecond}).handler(t))
		defer srv.Close()

		_, err := newTestClient(srv, WithHandshakeTimeout(50*time.Millisecond)).Connect(context.Background())
		assert.ErrorIs(t, err, upstream.ErrHandshakeTimeout)
	})

	t.Run("warm-up longer than the handshake budget", func(t *testing.T) {
		srv := httptest.NewServer((&fakeHelix{}).handler(t))
		defer srv.Close()

		_, err := newTestClient(srv,
			WithHandshakeTimeout(50*time.Millisecond),
			WithWarmupDelay(time.Second),
		).Connect(context.Background())
		assert.ErrorIs(t, err, upstream.ErrHandshakeTimeout)
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		srv := httptest.NewServer((&fakeHelix{probeDelay: 300 * time.Millisecond}).handler(t))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := newTestClient(srv).Connect(ctx)
		require.Error(t, err)
		assert.False(t, errors.Is(err, upstream.ErrHandshakeTimeout))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := http.Header{}
	assert.Equal(t, time.Duration(0), retryAfter(h, now))

	h.Set("Ratelimit-Reset", "1700000005")
	assert.Equal(t, 5*time.Second, retryAfter(h, now))

	h.Set("Retry-After", "2")
	assert.Equal(t, 2*time.Second, retryAfter(h, now))
}
