// Package transport carries presenter input and status over websocket
// topics, so that remotes and other processes can drive a presentation.
package transport

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ivlev/simslides/internal/controller"
)

// Topic paths.
const (
	TopicKeypress = "/keyboard/keypress"
	TopicKeyframe = "/simslides/keyframe"
	TopicStatus   = "/simslides/status"
)

const (
	writeWait     = 5 * time.Second
	statusBacklog = 8
)

// KeyMsg is a key press on TopicKeypress.
type KeyMsg struct {
	Data int32 `json:"data"`
}

// IndexMsg is a direct keyframe jump on TopicKeyframe.
type IndexMsg struct {
	Data int `json:"data"`
}

// StatusMsg is pushed on TopicStatus after every applied keyframe.
type StatusMsg struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
}

// Handler receives the input topics. *controller.Controller implements it.
type Handler interface {
	OnControlKey(code int32) bool
	OnDirectIndex(i int) bool
}

// Server serves the topics. Input handlers are called on connection
// goroutines.
type Server struct {
	handler  Handler
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[chan StatusMsg]struct{}
	last        *StatusMsg
}

// NewServer returns a server forwarding input to h.
func NewServer(h Handler, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		handler: h,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: localOrigin,
		},
		subscribers: make(map[chan StatusMsg]struct{}),
	}
}

// localOrigin accepts non-browser clients, which send no Origin, and pages
// served from this machine.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Handler returns the HTTP handler for all topics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(TopicKeypress, s.serveKeypress)
	mux.HandleFunc(TopicKeyframe, s.serveKeyframe)
	mux.HandleFunc(TopicStatus, s.serveStatus)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.logger.Infow("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrapf(err, "failed to serve on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.closeSubscribers()
		return srv.Shutdown(shutdownCtx)
	}
}

// Publish sends st to all status subscribers. It never blocks; a
// subscriber that is too far behind misses updates.
func (s *Server) Publish(st controller.Status) {
	msg := StatusMsg{Index: st.Index, Total: st.Total, Text: st.Text}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &msg
	for ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
			s.logger.Debugw("status subscriber behind, dropping update", "index", msg.Index)
		}
	}
}

func (s *Server) serveKeypress(w http.ResponseWriter, r *http.Request) {
	s.serveInput(w, r, func(conn *websocket.Conn) error {
		var msg KeyMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		accepted := s.handler.OnControlKey(msg.Data)
		s.logger.Debugw("keypress", "code", msg.Data, "accepted", accepted)
		return nil
	})
}

func (s *Server) serveKeyframe(w http.ResponseWriter, r *http.Request) {
	s.serveInput(w, r, func(conn *websocket.Conn) error {
		var msg IndexMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		accepted := s.handler.OnDirectIndex(msg.Data)
		s.logger.Debugw("keyframe", "index", msg.Data, "accepted", accepted)
		return nil
	})
}

// serveInput upgrades the request and calls read until the peer goes away.
func (s *Server) serveInput(w http.ResponseWriter, r *http.Request, read func(*websocket.Conn) error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("upgrade failed", "path", r.URL.Path, "error", err)
		return
	}
	defer conn.Close()

	for {
		if err := read(conn); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugw("input connection closed", "path", r.URL.Path, "error", err)
			}
			return
		}
	}
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("upgrade failed", "path", r.URL.Path, "error", err)
		return
	}
	defer conn.Close()

	ch := make(chan StatusMsg, statusBacklog)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	if s.last != nil {
		ch <- *s.last
	}
	s.mu.Unlock()
	defer s.unsubscribe(ch)

	// The peer sends nothing; reading only notices when it leaves.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debugw("status write failed", "error", err)
				return
			}
		}
	}
}

func (s *Server) unsubscribe(ch chan StatusMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Server) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
