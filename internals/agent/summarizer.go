package agent

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/jadenj13/opsagent/internals/chat"
)

const (
	// historyWindow bounds the prompt: older messages are silently dropped.
	historyWindow = 12
	// toolOutputLimit caps the JSON rendering of a tool result in the prompt.
	toolOutputLimit = 2000
)

const systemInstruction = "You are an AI DevOps Assistant. Be concise and factual.\n" +
	"If a TOOL OUTPUT is provided, summarize the final result in one short line for the user.\n" +
	"Do NOT invent actions or repeat unrelated previous tool outputs.\n" +
	"If tool_result.ok is false, produce a short error message explaining why."

// LLM is the single model call the summarizer depends on.
type LLM interface {
	Complete(ctx context.Context, system string, messages []chat.Message) ([]chat.Message, error)
}

// summarize builds the bounded prompt, invokes the model once, and returns
// the new messages for this turn. A model failure never propagates: it
// degrades into a single system message so the turn always completes.
func (p *Pipeline) summarize(ctx context.Context, state chat.State) []chat.Message {
	history := state.Messages
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	prompt := make([]chat.Message, 0, len(history)+1)
	for _, m := range history {
		prompt = append(prompt, chat.Normalize(m))
	}
	if state.ToolResult != nil {
		prompt = append(prompt, chat.System("TOOL_OUTPUT: "+renderToolResult(state.ToolResult)))
	}

	replies, err := p.llm.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		p.log.Warn("summarization failed", "err", err)
		return []chat.Message{chat.System("LLM call failed: " + err.Error())}
	}

	out := make([]chat.Message, 0, len(replies))
	for _, r := range replies {
		out = append(out, chat.Normalize(r))
	}
	return out
}

// renderToolResult is a pure function of the result: rendering the same
// result twice yields the same (possibly truncated) string.
func renderToolResult(tr *chat.ToolResult) string {
	b, err := json.Marshal(tr)
	if err != nil {
		return `{"error":"unrenderable tool result"}`
	}
	s := string(b)
	if len(s) > toolOutputLimit {
		cut := toolOutputLimit
		// Back off to a rune boundary so the cut never splits a multi-byte
		// character.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
