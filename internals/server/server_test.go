package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jadenj13/opsagent/internals/agent"
	"github.com/jadenj13/opsagent/internals/chat"
	"github.com/jadenj13/opsagent/internals/store"
)

type stubRouter struct {
	call *chat.ToolCall
}

func (s *stubRouter) Route(chat.State) *chat.ToolCall { return s.call }

type stubExec struct {
	result *chat.ToolResult
}

func (s *stubExec) Execute(_ context.Context, call *chat.ToolCall) *chat.ToolResult {
	if call == nil {
		return nil
	}
	return s.result
}

type stubLLM struct {
	reply string
}

func (s *stubLLM) Complete(context.Context, string, []chat.Message) ([]chat.Message, error) {
	return []chat.Message{chat.Assistant(s.reply)}, nil
}

type fixture struct {
	handler http.Handler
	store   *store.Store
}

func newFixture(t *testing.T, rt agent.Router, exec agent.ToolExecutor, llm agent.LLM) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chats.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipeline := agent.New(rt, exec, llm, log)
	return &fixture{handler: New(pipeline, st, log).Handler(), store: st}
}

func chatFixture(t *testing.T) *fixture {
	return newFixture(t, &stubRouter{}, &stubExec{}, &stubLLM{reply: "hello back"})
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, target, rd))
	return rec
}

func (f *fixture) createChat(t *testing.T) string {
	t.Helper()
	rec := f.do(t, "POST", "/chat/create", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("create chat: %d %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["chat_id"] == "" {
		t.Fatal("empty chat_id")
	}
	return resp["chat_id"]
}

func TestChatTurn(t *testing.T) {
	f := chatFixture(t)
	id := f.createChat(t)

	rec := f.do(t, "POST", "/chat", `{"chat_id":"`+id+`","message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: %d %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["reply"] != "hello back" {
		t.Fatalf("reply = %q", resp["reply"])
	}

	msgs, err := f.store.Messages(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want user + reply", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[1].Role != chat.RoleAssistant {
		t.Fatalf("roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestChatRequiresChatID(t *testing.T) {
	f := chatFixture(t)
	if rec := f.do(t, "POST", "/chat", `{"message":"hi"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestChatUnknownChat(t *testing.T) {
	f := chatFixture(t)
	rec := f.do(t, "POST", "/chat", `{"chat_id":"nope","message":"hi"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestChatBadPayload(t *testing.T) {
	f := chatFixture(t)
	if rec := f.do(t, "POST", "/chat", `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestStreamEmitsEvents(t *testing.T) {
	call := &chat.ToolCall{Tool: chat.ToolFile, Args: map[string]string{"action": "read", "path": "notes.txt"}}
	result := &chat.ToolResult{Tool: chat.ToolFile, Result: map[string]any{"ok": true, "content": "hi"}}
	f := newFixture(t, &stubRouter{call: call}, &stubExec{result: result}, &stubLLM{reply: "summary"})
	id := f.createChat(t)

	rec := f.do(t, "GET", "/agent/stream?chat_id="+url.QueryEscape(id)+"&message=read+file+notes.txt", "")
	body := rec.Body.String()

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	for _, want := range []string{
		"event: tool_call\n",
		"event: tool_output\n",
		"event: message\n",
		"event: end\ndata: \"done\"\n\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "event: tool_call") > strings.Index(body, "event: end") {
		t.Fatal("end must come last")
	}

	msgs, err := f.store.Messages(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[1].Content != "summary" {
		t.Fatalf("persisted = %+v", msgs)
	}
}

func TestStreamUnknownChat(t *testing.T) {
	f := chatFixture(t)
	rec := f.do(t, "GET", "/agent/stream?chat_id=nope&message=hi", "")
	body := rec.Body.String()
	if !strings.Contains(body, "event: error\n") || !strings.Contains(body, "chat not found") {
		t.Fatalf("body = %q", body)
	}
	if strings.Contains(body, "event: end") {
		t.Fatal("a failed lookup must not emit an end event")
	}
}

func TestListAndGetChats(t *testing.T) {
	f := chatFixture(t)
	id := f.createChat(t)

	rec := f.do(t, "GET", "/chats", "")
	var chats []store.Chat
	if err := json.Unmarshal(rec.Body.Bytes(), &chats); err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 || chats[0].ID != id {
		t.Fatalf("chats = %+v", chats)
	}

	rec = f.do(t, "GET", "/chat/"+id, "")
	var detail struct {
		ID       string         `json:"id"`
		Messages []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.ID != id || detail.Messages == nil {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestGetChatNotFound(t *testing.T) {
	f := chatFixture(t)
	if rec := f.do(t, "GET", "/chat/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestDeleteChat(t *testing.T) {
	f := chatFixture(t)
	id := f.createChat(t)

	rec := f.do(t, "DELETE", "/chat/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp["success"] {
		t.Fatalf("resp = %v", resp)
	}

	if rec := f.do(t, "GET", "/chat/"+id, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted chat still served: %d", rec.Code)
	}
}

func TestEmptyListIsJSONArray(t *testing.T) {
	f := chatFixture(t)
	rec := f.do(t, "GET", "/chats", "")
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}
