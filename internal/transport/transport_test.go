package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/ivlev/simslides/internal/controller"
)

type recordingHandler struct {
	keys    chan int32
	indices chan int
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{keys: make(chan int32, 10), indices: make(chan int, 10)}
}

func (h *recordingHandler) OnControlKey(code int32) bool {
	h.keys <- code
	return true
}

func (h *recordingHandler) OnDirectIndex(i int) bool {
	h.indices <- i
	return true
}

func startServer(t *testing.T) (*Server, *recordingHandler, string) {
	t.Helper()
	h := newRecordingHandler()
	srv := NewServer(h, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.closeSubscribers()
		ts.Close()
	})
	return srv, h, strings.TrimPrefix(ts.URL, "http://")
}

func TestKeypress(t *testing.T) {
	_, h, addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := PublishKey(ctx, addr, controller.KeyRight); err != nil {
		t.Fatalf("PublishKey failed: %v", err)
	}
	select {
	case code := <-h.keys:
		if code != controller.KeyRight {
			t.Errorf("code = %d, want %d", code, controller.KeyRight)
		}
	case <-ctx.Done():
		t.Fatal("key press not delivered")
	}
}

func TestKeyframeIndex(t *testing.T) {
	_, h, addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr, TopicKeyframe)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	for _, i := range []int{3, 0, 7} {
		if err := c.Send(IndexMsg{Data: i}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	var got []int
	for len(got) < 3 {
		select {
		case i := <-h.indices:
			got = append(got, i)
		case <-ctx.Done():
			t.Fatalf("got %v before timeout", got)
		}
	}
	if diff := cmp.Diff([]int{3, 0, 7}, got); diff != "" {
		t.Errorf("indices mismatch (-want +got):\n%s", diff)
	}
}

func TestStatus(t *testing.T) {
	srv, _, addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A status published before anyone listens is sent on connect.
	srv.Publish(controller.Status{Index: 0, Total: 4, Text: "intro"})

	c, err := Dial(ctx, addr, TopicStatus)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	first, err := c.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if diff := cmp.Diff(StatusMsg{Index: 0, Total: 4, Text: "intro"}, first); diff != "" {
		t.Errorf("first status mismatch (-want +got):\n%s", diff)
	}

	srv.Publish(controller.Status{Index: 1, Total: 4})
	next, err := c.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if next.Index != 1 {
		t.Errorf("index = %d, want 1", next.Index)
	}
}

func TestLocalOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:8080", true},
		{"http://127.0.0.1", true},
		{"http://[::1]:3000", true},
		{"https://example.com", false},
		{"http://localhost.example.com", false},
		{"null", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, TopicKeypress, nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := localOrigin(r); got != tt.want {
			t.Errorf("localOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestForeignOriginRejected(t *testing.T) {
	_, h, addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{"Origin": {"https://example.com"}}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+addr+TopicKeypress, header)
	if err == nil {
		conn.Close()
		t.Fatal("connection from a foreign page accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
	select {
	case code := <-h.keys:
		t.Errorf("key %d delivered", code)
	default:
	}
}

func TestDialFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := PublishKey(ctx, "127.0.0.1:1", controller.KeyLeft); err == nil {
		t.Error("PublishKey to a closed port succeeded")
	}
}

func TestListenAndServeStops(t *testing.T) {
	srv := NewServer(newRecordingHandler(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("ListenAndServe did not stop")
	}
}
