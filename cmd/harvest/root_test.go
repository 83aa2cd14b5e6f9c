package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/streamscout/internal/adapters/catalog"
)

// fakeTwitch serves a token, the warm-up probe and two pages of top games.
func fakeTwitch(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
	})
	mux.HandleFunc("/helix/streams", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"data":[]}`)
	})
	mux.HandleFunc("/helix/games/top", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "" {
			_, _ = fmt.Fprint(w, `{"data":[{"id":"1","name":"Alpha"},{"id":"2","name":"Beta"}],"pagination":{"cursor":"page-2"}}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"data":[{"id":"3","name":"Gamma"}],"pagination":{}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHarvestCommand(t *testing.T) {
	srv := fakeTwitch(t)
	t.Setenv("STREAMSCOUT_HELIX_BASE_URL", srv.URL+"/helix")
	t.Setenv("STREAMSCOUT_AUTH_URL", srv.URL+"/oauth2/token")
	t.Setenv("STREAMSCOUT_TWITCH_CLIENT_ID", "id")
	t.Setenv("STREAMSCOUT_TWITCH_CLIENT_SECRET", "secret")

	out := filepath.Join(t.TempDir(), "top_games.json")
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"--output", out, "--count", "5", "--page-delay", "0s"})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), "Saved 3 games to "+out)

	doc, err := catalog.Load(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, doc.Names())
	assert.Equal(t, 3, doc.TotalGames)
}
