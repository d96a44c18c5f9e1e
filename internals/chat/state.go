package chat

// ToolKind names one of the four tool families the router can select.
type ToolKind string

const (
	ToolFile          ToolKind = "file"
	ToolShell         ToolKind = "shell"
	ToolSourceControl ToolKind = "source_control"
	ToolRepo          ToolKind = "repo"
)

// ToolCall is the router's classification of a user message: one tool family
// plus string arguments. At most one is produced per turn. A key that is
// absent from Args stands for a null argument.
type ToolCall struct {
	Tool ToolKind          `json:"tool"`
	Args map[string]string `json:"args"`
}

func (tc *ToolCall) Arg(key string) string {
	if tc == nil || tc.Args == nil {
		return ""
	}
	return tc.Args[key]
}

// ToolResult is the executor's structured outcome. Result always carries an
// "ok" bool plus either a success payload or an "error" string code; it is
// rendered to JSON for the summarizer and the event stream.
type ToolResult struct {
	Tool   ToolKind       `json:"tool"`
	Result map[string]any `json:"result"`
}

func (tr *ToolResult) OK() bool {
	if tr == nil || tr.Result == nil {
		return false
	}
	ok, _ := tr.Result["ok"].(bool)
	return ok
}

// State is the record threaded through the pipeline for one turn. Messages
// accumulate across turns and are owned by the caller's persistence layer;
// ToolCall and ToolResult are turn-scoped scratch fields.
type State struct {
	Messages   []Message
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

// LastMessage returns the most recently appended message, or nil when the
// conversation is empty.
func (s State) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}
