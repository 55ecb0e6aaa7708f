// Package server serves steady's status page and indicator event stream.
package server

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okranz/steady/internal/log"
	"github.com/okranz/steady/internal/statetrack"

	"github.com/andybalholm/brotli"
	"github.com/gorilla/websocket"
)

const (
	// PathEvents is the websocket endpoint streaming indicator events.
	PathEvents = "/_steady/events"

	// PathState is the JSON endpoint returning the current state snapshot.
	PathState = "/_steady/state"
)

// Websocket messages sent to status page clients.
var (
	bytesMsgShow    = []byte("s")
	bytesMsgHide    = []byte("h")
	bytesMsgOutcome = []byte("e")
)

//go:embed status.html
var statusPage []byte

// Server exposes the smoothed refresh indicator to browsers:
// a status page on "/", a state snapshot on PathState and
// a websocket event stream on PathEvents.
type Server struct {
	tracker           *statetrack.Tracker
	webSocketUpgrader websocket.Upgrader
	pageBrotli        []byte
}

func New(tracker *statetrack.Tracker) *Server {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(statusPage); err != nil {
		panic(fmt.Errorf("compressing status page: %w", err))
	}
	if err := bw.Close(); err != nil {
		panic(fmt.Errorf("compressing status page: %w", err))
	}
	return &Server{
		tracker:    tracker,
		pageBrotli: buf.Bytes(),
		webSocketUpgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // Ignore CORS
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		s.handleStatusPage(w, r)
	case PathState:
		s.handleState(w, r)
	case PathEvents:
		s.handleEvents(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(s.pageBrotli)
		return
	}
	_, _ = w.Write(statusPage)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state := s.tracker.Get()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(struct {
		Refreshing bool   `json:"refreshing"`
		ErrOutput  string `json:"err-output,omitempty"`
	}{
		Refreshing: state.Refreshing,
		ErrOutput:  state.ErrOutput,
	})
	if err != nil {
		internalErr(w, "encoding state", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w,
			"expecting method GET on the events route",
			http.StatusMethodNotAllowed)
		return
	}
	c, err := s.webSocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("upgrading to websocket: %v", err)
		return
	}
	defer c.Close()

	notify := make(chan statetrack.Event, 8)
	s.tracker.AddListener(notify)
	defer s.tracker.RemoveListener(notify)

	// Initial snapshot so late-joining clients render the current state.
	if !writeWSMsg(c, indicatorMsg(s.tracker.Get().Refreshing)) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-notify:
			var msg []byte
			switch e {
			case statetrack.EventIndicator:
				msg = indicatorMsg(s.tracker.Get().Refreshing)
			case statetrack.EventOutcome:
				msg = bytesMsgOutcome
			default:
				continue
			}
			if !writeWSMsg(c, msg) {
				return // Disconnect
			}
		}
	}
}

func indicatorMsg(refreshing bool) []byte {
	if refreshing {
		return bytesMsgShow
	}
	return bytesMsgHide
}

func writeWSMsg(c *websocket.Conn, msg []byte) (ok bool) {
	err := c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err != nil {
		return false
	}
	err = c.WriteMessage(websocket.TextMessage, msg)
	return err == nil
}

func internalErr(w http.ResponseWriter, msg string, err error) {
	http.Error(w,
		fmt.Sprintf("%s: %v", msg, err),
		http.StatusInternalServerError)
}
