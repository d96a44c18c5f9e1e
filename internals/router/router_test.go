package router

import (
	"reflect"
	"testing"

	"github.com/jadenj13/opsagent/internals/chat"
)

func routeText(t *testing.T, cfg Config, text string) *chat.ToolCall {
	t.Helper()
	return New(cfg).Route(chat.State{Messages: []chat.Message{chat.User(text)}})
}

func TestRouteRules(t *testing.T) {
	cfg := Config{DefaultOwner: "acme", DefaultRepo: "widgets"}

	tests := []struct {
		name     string
		text     string
		wantTool chat.ToolKind
		wantArgs map[string]string // subset checked against Args
	}{
		{
			name:     "read file with path",
			text:     "read file notes.txt",
			wantTool: chat.ToolFile,
			wantArgs: map[string]string{"action": "read", "path": "notes.txt"},
		},
		{
			name:     "show file routes to read",
			text:     "please show file docs/plan.md",
			wantTool: chat.ToolFile,
			wantArgs: map[string]string{"action": "read"},
		},
		{
			name:     "write file with colon content",
			text:     "write file src/app.py: print('hi')",
			wantTool: chat.ToolFile,
			wantArgs: map[string]string{"action": "write", "path": "src/app.py", "content": "print('hi')"},
		},
		{
			name:     "write file path only leaves content null",
			text:     "create file empty.txt",
			wantTool: chat.ToolFile,
			wantArgs: map[string]string{"action": "write", "path": "empty.txt"},
		},
		{
			name:     "create repo extracts name",
			text:     "create repo myproj",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{"action": "create_repo", "name": "myproj"},
		},
		{
			name:     "create repo wins over branch listing",
			text:     "create repo myproj and list its branches",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{"action": "create_repo", "name": "myproj"},
		},
		{
			name:     "list repos",
			text:     "show repos please",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{"action": "list_repos"},
		},
		{
			name:     "bare repositories keyword still routes",
			text:     "repositories",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{"action": "list_repos"},
		},
		{
			name:     "update readme with repo and content",
			text:     "update readme for alice/site with Welcome to the site",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{
				"action": "update_file", "path": "README.md",
				"owner": "alice", "repo": "site", "content": "Welcome to the site",
			},
		},
		{
			name:     "create pr with explicit coordinates",
			text:     "create pr in alice/site from feature-x to main",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{
				"action": "create_pr", "owner": "alice", "repo": "site",
				"head": "feature-x", "base": "main",
			},
		},
		{
			name:     "create pr keeps branch name case",
			text:     "create pr in alice/site FROM Feature-X TO Main",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{
				"action": "create_pr", "owner": "alice", "repo": "site",
				"head": "Feature-X", "base": "Main",
			},
		},
		{
			name:     "create pr falls back to defaults",
			text:     "open pull request",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{"action": "create_pr", "owner": "acme", "repo": "widgets"},
		},
		{
			name:     "list branches with coordinates",
			text:     "list branches of alice/site",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{"action": "list_branches", "owner": "alice", "repo": "site"},
		},
		{
			name:     "branches keyword uses defaults",
			text:     "branches",
			wantTool: chat.ToolSourceControl,
			wantArgs: map[string]string{"action": "list_branches", "owner": "acme", "repo": "widgets"},
		},
		{
			name:     "push intent maps to status check",
			text:     "push my code",
			wantTool: chat.ToolShell,
			wantArgs: map[string]string{"action": "push_intent", "command": "git status -b"},
		},
		{
			name:     "push repo variant also maps to status check",
			text:     "can you push repo now",
			wantTool: chat.ToolShell,
			wantArgs: map[string]string{"action": "push_intent", "command": "git status -b"},
		},
		{
			name:     "fix repo",
			text:     "fix my repo",
			wantTool: chat.ToolRepo,
			wantArgs: map[string]string{"action": "fix_repo"},
		},
		{
			name:     "run tests routes to repo maintenance",
			text:     "please run tests",
			wantTool: chat.ToolRepo,
			wantArgs: map[string]string{"action": "fix_repo"},
		},
		{
			name:     "run colon shell form",
			text:     "run: echo hi",
			wantTool: chat.ToolShell,
			wantArgs: map[string]string{"action": "exec", "command": "echo hi"},
		},
		{
			name:     "bare ls is treated as the command",
			text:     "ls -la",
			wantTool: chat.ToolShell,
			wantArgs: map[string]string{"action": "exec", "command": "ls -la"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := routeText(t, cfg, tt.text)
			if call == nil {
				t.Fatalf("Route(%q) = nil, want tool %s", tt.text, tt.wantTool)
			}
			if call.Tool != tt.wantTool {
				t.Fatalf("tool = %s, want %s", call.Tool, tt.wantTool)
			}
			for k, v := range tt.wantArgs {
				if got := call.Arg(k); got != v {
					t.Errorf("arg %q = %q, want %q", k, got, v)
				}
			}
			if got := call.Arg("text"); got != tt.text {
				t.Errorf("text arg = %q, want original message", got)
			}
		})
	}
}

func TestRouteNoMatch(t *testing.T) {
	for _, text := range []string{
		"what is the weather like today",
		"thanks, that helped",
		"explain goroutines",
	} {
		if call := routeText(t, Config{}, text); call != nil {
			t.Errorf("Route(%q) = %+v, want nil", text, call)
		}
	}
}

func TestRouteEmptyConversation(t *testing.T) {
	if call := New(Config{}).Route(chat.State{}); call != nil {
		t.Fatalf("empty conversation: got %+v, want nil", call)
	}
}

func TestRouteNoDefaultsOmitsCoordinates(t *testing.T) {
	call := routeText(t, Config{}, "branches")
	if call == nil {
		t.Fatal("expected a branch listing call")
	}
	if _, ok := call.Args["owner"]; ok {
		t.Error("owner should be absent without defaults")
	}
	if _, ok := call.Args["repo"]; ok {
		t.Error("repo should be absent without defaults")
	}
}

func TestRouteDeterministic(t *testing.T) {
	r := New(Config{DefaultOwner: "acme", DefaultRepo: "widgets"})
	state := chat.State{Messages: []chat.Message{chat.User("create pr in alice/site from a to b")}}
	first := r.Route(state)
	for i := 0; i < 10; i++ {
		if got := r.Route(state); !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
}
