package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handstream/internal/relay"
)

type fixedStatus struct {
	calibrated bool
	frames     uint64
}

func (f fixedStatus) Calibrated() bool { return f.calibrated }
func (f fixedStatus) Frames() uint64   { return f.frames }

func TestServer_Health(t *testing.T) {
	s := New(Config{Status: fixedStatus{calibrated: true, frames: 12}})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if response["calibrated"] != true {
			t.Errorf("expected calibrated true, got %v", response["calibrated"])
		}
		if response["frames"] != float64(12) {
			t.Errorf("expected frames 12, got %v", response["frames"])
		}
		if response["clients"] != float64(0) {
			t.Errorf("expected clients 0, got %v", response["clients"])
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/frame", "/api/sessions", "/api/sessions/0", "/api/stream"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: expected status %d, got %d", path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/", "/api/sessions/abc"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Frame(t *testing.T) {
	var slot relay.Slot
	s := New(Config{Slot: &slot})

	t.Run("no content before the first frame", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frame", nil))

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}
	})

	t.Run("returns the latest document verbatim", func(t *testing.T) {
		doc := `{"FrameID":7,"timestamp":1,"hands":[]}`
		slot.Store(doc)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frame", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if rec.Body.String() != doc {
			t.Errorf("expected body %s, got %s", doc, rec.Body.String())
		}
	})
}

// connectSession registers one client with a loopback acceptor.
func connectSession(t *testing.T) *relay.Registry {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	registry := relay.NewRegistry()
	acceptor := relay.NewAcceptor(l, &relay.Slot{}, registry, relay.Config{
		DestPort:     relay.DefaultDestPort,
		PollInterval: time.Millisecond,
	})
	go acceptor.Serve(ctx)

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		l.Close()
		cancel()
		acceptor.Wait(time.Second)
	})

	deadline := time.Now().Add(time.Second)
	for registry.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session was not registered")
		}
		time.Sleep(2 * time.Millisecond)
	}
	return registry
}

func TestServer_Sessions(t *testing.T) {
	registry := connectSession(t)
	s := New(Config{Sessions: registry})

	t.Run("lists sessions", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response struct {
			Sessions []relay.SessionInfo `json:"sessions"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(response.Sessions))
		}
		if response.Sessions[0].ID != 0 || response.Sessions[0].Token == "" {
			t.Errorf("unexpected session %+v", response.Sessions[0])
		}
	})

	t.Run("gets one session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/0", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var info relay.SessionInfo
		if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !strings.HasSuffix(info.Dest, ":7777") {
			t.Errorf("expected dest port 7777, got %s", info.Dest)
		}
	})

	t.Run("unknown session returns 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/42", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestStreamHandler(t *testing.T) {
	var slot relay.Slot
	ts := httptest.NewServer(New(Config{Slot: &slot, PollInterval: time.Millisecond}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() string {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return string(msg)
	}

	slot.Store("frame-1")
	if got := read(); got != "frame-1" {
		t.Errorf("expected frame-1, got %s", got)
	}

	// An unchanged slot sends nothing; the next message is the next frame
	time.Sleep(20 * time.Millisecond)
	slot.Store("frame-2")
	if got := read(); got != "frame-2" {
		t.Errorf("expected frame-2, got %s", got)
	}
}

func TestNew(t *testing.T) {
	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})
}
