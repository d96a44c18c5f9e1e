package chat

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Message
	}{
		{
			name: "canonical message passes through",
			raw:  Message{Role: RoleAssistant, Content: "hi"},
			want: Message{Role: RoleAssistant, Content: "hi"},
		},
		{
			name: "bare string becomes user message",
			raw:  "hello",
			want: Message{Role: RoleUser, Content: "hello"},
		},
		{
			name: "role key with human alias",
			raw:  map[string]any{"role": "human", "content": "hey"},
			want: Message{Role: RoleUser, Content: "hey"},
		},
		{
			name: "type key with ai alias",
			raw:  map[string]any{"type": "ai", "text": "sure"},
			want: Message{Role: RoleAssistant, Content: "sure"},
		},
		{
			name: "unknown role degrades to system",
			raw:  map[string]any{"role": "tool", "content": "output"},
			want: Message{Role: RoleSystem, Content: "output"},
		},
		{
			name: "missing content renders the map as JSON",
			raw:  map[string]any{"role": "meta"},
			want: Message{Role: RoleSystem, Content: `{"role":"meta"}`},
		},
		{
			name: "string map works like any map",
			raw:  map[string]string{"role": "user", "content": "hi"},
			want: Message{Role: RoleUser, Content: "hi"},
		},
		{
			name: "unrecognised shape wraps the string form",
			raw:  42,
			want: Message{Role: RoleSystem, Content: "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got != tt.want {
				t.Fatalf("Normalize(%v) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLastMessage(t *testing.T) {
	if got := (State{}).LastMessage(); got != nil {
		t.Fatalf("empty state: got %+v, want nil", got)
	}
	s := State{Messages: []Message{User("a"), Assistant("b")}}
	if got := s.LastMessage(); got == nil || got.Content != "b" {
		t.Fatalf("got %+v, want assistant b", got)
	}
}

func TestToolResultOK(t *testing.T) {
	var nilResult *ToolResult
	if nilResult.OK() {
		t.Fatal("nil result must not be ok")
	}
	tr := &ToolResult{Tool: ToolFile, Result: map[string]any{"ok": true}}
	if !tr.OK() {
		t.Fatal("expected ok")
	}
	tr.Result["ok"] = false
	if tr.OK() {
		t.Fatal("expected not ok")
	}
}
