package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okranz/steady/internal/server"
	"github.com/okranz/steady/internal/statetrack"

	"github.com/andybalholm/brotli"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *statetrack.Tracker) {
	t.Helper()
	tracker := statetrack.NewTracker()
	srv := httptest.NewServer(server.New(tracker))
	t.Cleanup(srv.Close)
	return srv, tracker
}

func TestStatusPage(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "steady")
}

func TestStatusPageBrotli(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	r, err := http.NewRequest(http.MethodGet, srv.URL+"/", http.NoBody)
	require.NoError(t, err)
	r.Header.Set("Accept-Encoding", "br")

	resp, err := srv.Client().Do(r)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "br", resp.Header.Get("Content-Encoding"))

	decompressed, err := io.ReadAll(brotli.NewReader(resp.Body))
	require.NoError(t, err)

	plain, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer plain.Body.Close()
	plainBody, err := io.ReadAll(plain.Body)
	require.NoError(t, err)

	require.Equal(t, plainBody, decompressed)
}

func TestState(t *testing.T) {
	t.Parallel()

	srv, tracker := newTestServer(t)
	tracker.SetRefreshing(true)
	tracker.SetErrOutput("compile error")

	resp, err := srv.Client().Get(srv.URL + server.PathState)
	require.NoError(t, err)
	defer resp.Body.Close()

	var state struct {
		Refreshing bool   `json:"refreshing"`
		ErrOutput  string `json:"err-output"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.True(t, state.Refreshing)
	require.Equal(t, "compile error", state.ErrOutput)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEvents(t *testing.T) {
	t.Parallel()

	srv, tracker := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + server.PathEvents
	c, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer c.Close()

	readMsg := func() string {
		t.Helper()
		require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, msg, err := c.ReadMessage()
		require.NoError(t, err)
		return string(msg)
	}

	// Initial snapshot for the hidden indicator.
	require.Equal(t, "h", readMsg())

	tracker.SetRefreshing(true)
	require.Equal(t, "s", readMsg())

	tracker.SetErrOutput("refresh failed")
	require.Equal(t, "e", readMsg())

	tracker.SetRefreshing(false)
	require.Equal(t, "h", readMsg())
}
