// Package agent wires the three pipeline stages into a linear state machine:
// route, execute, summarize. Transitions are unconditional: each stage runs
// exactly once per turn and a failing stage degrades its own output instead
// of stopping the machine, so every turn ends with at least one new message.
package agent

import (
	"context"
	"log/slog"

	"github.com/jadenj13/opsagent/internals/chat"
)

type EventKind string

const (
	EventToolCall   EventKind = "tool_call"
	EventToolOutput EventKind = "tool_output"
	EventMessage    EventKind = "message"
	EventEnd        EventKind = "end"
	EventError      EventKind = "error"
)

// Event is one intermediate pipeline observation for streaming clients.
type Event struct {
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload,omitempty"`
}

type Router interface {
	Route(state chat.State) *chat.ToolCall
}

type ToolExecutor interface {
	Execute(ctx context.Context, call *chat.ToolCall) *chat.ToolResult
}

// Notifier receives successful mutating source-control actions. Failures are
// logged and swallowed; notification never affects the turn.
type Notifier interface {
	ActionSucceeded(ctx context.Context, action string, result map[string]any) error
}

type Pipeline struct {
	router   Router
	exec     ToolExecutor
	llm      LLM
	notifier Notifier
	log      *slog.Logger
}

type Option func(*Pipeline)

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func New(router Router, exec ToolExecutor, llm LLM, log *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{router: router, exec: exec, llm: llm, log: log}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run traverses the pipeline once and returns the final state: the incoming
// messages plus this turn's new messages, and the turn-scoped tool call and
// result (either may be nil for a no-tool turn).
func (p *Pipeline) Run(ctx context.Context, state chat.State) chat.State {
	return p.run(ctx, state, nil)
}

// Events traverses the pipeline in a goroutine and emits intermediate events
// followed by a terminal end event. The channel closes after the end event;
// a cancelled context abandons emission but never blocks the traversal.
func (p *Pipeline) Events(ctx context.Context, state chat.State) <-chan Event {
	ch := make(chan Event, 8)
	go func() {
		defer close(ch)
		emit := func(e Event) {
			select {
			case ch <- e:
			case <-ctx.Done():
			}
		}
		p.run(ctx, state, emit)
		emit(Event{Kind: EventEnd, Payload: "done"})
	}()
	return ch
}

func (p *Pipeline) run(ctx context.Context, state chat.State, emit func(Event)) chat.State {
	// Each stage contributes a patch; the controller owns the merge so no
	// stage ever mutates another stage's output.
	state.ToolCall = nil
	state.ToolResult = nil

	call := p.router.Route(state)
	state.ToolCall = call
	if call != nil {
		p.log.Info("routed", "tool", call.Tool, "action", call.Arg("action"))
		if emit != nil {
			emit(Event{Kind: EventToolCall, Payload: call})
		}
	}

	result := p.exec.Execute(ctx, call)
	state.ToolResult = result
	if result != nil {
		if emit != nil {
			emit(Event{Kind: EventToolOutput, Payload: result})
		}
		p.notify(ctx, call, result)
	}

	replies := p.summarize(ctx, state)
	for _, m := range replies {
		if emit != nil && m.Content != "" {
			emit(Event{Kind: EventMessage, Payload: m})
		}
	}
	state.Messages = append(state.Messages, replies...)

	return state
}

var mutatingActions = map[string]bool{
	"create_repo": true,
	"update_file": true,
	"create_pr":   true,
}

func (p *Pipeline) notify(ctx context.Context, call *chat.ToolCall, result *chat.ToolResult) {
	if p.notifier == nil || call == nil || call.Tool != chat.ToolSourceControl {
		return
	}
	action := call.Arg("action")
	if !mutatingActions[action] || !result.OK() {
		return
	}
	if err := p.notifier.ActionSucceeded(ctx, action, result.Result); err != nil {
		p.log.Warn("notification failed", "action", action, "err", err)
	}
}
