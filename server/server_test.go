package server_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adorahq/companion-go-sdk/companions"
	"github.com/adorahq/companion-go-sdk/core"
	"github.com/adorahq/companion-go-sdk/history/memstore"
	"github.com/adorahq/companion-go-sdk/memory"
	"github.com/adorahq/companion-go-sdk/memory/embedder/mock"
	"github.com/adorahq/companion-go-sdk/memory/store/chromem"
	"github.com/adorahq/companion-go-sdk/ratelimit"
	"github.com/adorahq/companion-go-sdk/server"
)

// scriptedCompleter streams a fixed reply in two chunks.
type scriptedCompleter struct {
	reply string
	calls atomic.Int64
}

func (c *scriptedCompleter) Complete(_ context.Context, _ string) (string, error) {
	c.calls.Add(1)
	return c.reply, nil
}

func (c *scriptedCompleter) Stream(_ context.Context, _ string, onChunk func(string)) (string, error) {
	c.calls.Add(1)
	half := len(c.reply) / 2
	onChunk(c.reply[:half])
	onChunk(c.reply[half:])
	return c.reply, nil
}

func newTestServer(t *testing.T, limiter ratelimit.Limiter, completer *scriptedCompleter) *httptest.Server {
	t.Helper()

	profiles := companions.NewStatic(core.CompanionProfile{
		ID:           "luna",
		Name:         "Luna",
		Instructions: "Be warm.",
		Seed:         "Hi, I'm Luna.\n\nWhat's on your mind?",
	})

	vectors, err := chromem.New()
	if err != nil {
		t.Fatalf("create vector store: %v", err)
	}

	orch := memory.NewOrchestrator(limiter, profiles, memstore.New(), vectors, mock.New(), nil)
	handler := server.NewChatHandler(orch, profiles, completer, server.Config{ModelName: "test-model"})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestChatTurn(t *testing.T) {
	completer := &scriptedCompleter{reply: "It's lovely to meet you!"}
	srv := newTestServer(t, ratelimit.NewWindow(ratelimit.Config{MaxRequests: 100, Window: time.Minute}), completer)
	conn := dial(t, srv)

	err := conn.WriteJSON(server.TurnRequest{
		CompanionID: "luna",
		UserID:      "u1",
		Message:     "hello",
	})
	if err != nil {
		t.Fatalf("write turn: %v", err)
	}

	var chunks []string
	for {
		var resp server.TurnResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		switch resp.Type {
		case "chunk":
			chunks = append(chunks, resp.Text)
			continue
		case "done":
			if resp.Text != completer.reply {
				t.Errorf("done frame text = %q, want %q", resp.Text, completer.reply)
			}
			if strings.Join(chunks, "") != completer.reply {
				t.Errorf("chunks %v do not assemble the reply", chunks)
			}
			return
		default:
			t.Fatalf("unexpected frame: %+v", resp)
		}
	}
}

func TestChatTurnThrottled(t *testing.T) {
	completer := &scriptedCompleter{reply: "Hello again, friend."}
	srv := newTestServer(t, ratelimit.NewWindow(ratelimit.Config{MaxRequests: 1, Window: time.Minute}), completer)
	conn := dial(t, srv)

	turn := server.TurnRequest{CompanionID: "luna", UserID: "u1", Message: "hello"}

	if err := conn.WriteJSON(turn); err != nil {
		t.Fatalf("write first turn: %v", err)
	}
	for {
		var resp server.TurnResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if resp.Type == "done" {
			break
		}
	}

	if err := conn.WriteJSON(turn); err != nil {
		t.Fatalf("write second turn: %v", err)
	}
	var resp server.TurnResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if resp.Type != "error" || resp.Code != server.CodeThrottled {
		t.Fatalf("got frame %+v, want throttled error", resp)
	}

	if calls := completer.calls.Load(); calls != 1 {
		t.Errorf("completer called %d times, want 1 (throttled turn must not reach the model)", calls)
	}
}

func TestChatTurnUnknownCompanion(t *testing.T) {
	completer := &scriptedCompleter{reply: "unused"}
	srv := newTestServer(t, ratelimit.NewWindow(ratelimit.Config{MaxRequests: 100, Window: time.Minute}), completer)
	conn := dial(t, srv)

	err := conn.WriteJSON(server.TurnRequest{CompanionID: "nobody", UserID: "u1", Message: "hi"})
	if err != nil {
		t.Fatalf("write turn: %v", err)
	}

	var resp server.TurnResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if resp.Type != "error" || resp.Code != server.CodeNotFound {
		t.Fatalf("got frame %+v, want not_found error", resp)
	}
	if calls := completer.calls.Load(); calls != 0 {
		t.Errorf("completer called %d times, want 0", calls)
	}
}
