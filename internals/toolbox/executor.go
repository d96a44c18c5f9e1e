// Package toolbox executes the single tool call a turn may carry. All side
// effects of the pipeline (filesystem writes, process spawns, network calls)
// happen here and nowhere else. Execute never returns an error: every
// failure is captured as an ok:false payload scoped to the originating tool.
package toolbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jadenj13/opsagent/internals/chat"
	"github.com/jadenj13/opsagent/internals/git"
)

const (
	repoDescription  = "Created by AI Agent"
	commitMessage    = "Agent update"
	defaultTestCmd   = "pytest -q"
	defaultLintCmd   = "flake8 ."
	defaultReadmeDoc = "README.md"
)

type Config struct {
	ProjectRoot  string
	ShellTimeout time.Duration
	DefaultOwner string
	DefaultRepo  string
	TestCommand  string
	LintCommand  string
}

type Executor struct {
	files *Files
	shell *Shell
	scm   git.Provider // nil when no source-control token is configured

	defaultOwner string
	defaultRepo  string
	testCmd      string
	lintCmd      string

	log *slog.Logger
	now func() time.Time
}

func New(cfg Config, scm git.Provider, log *slog.Logger) (*Executor, error) {
	files, err := NewFiles(cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}
	testCmd := cfg.TestCommand
	if testCmd == "" {
		testCmd = defaultTestCmd
	}
	lintCmd := cfg.LintCommand
	if lintCmd == "" {
		lintCmd = defaultLintCmd
	}
	return &Executor{
		files:        files,
		shell:        NewShell(files.Root(), cfg.ShellTimeout),
		scm:          scm,
		defaultOwner: cfg.DefaultOwner,
		defaultRepo:  cfg.DefaultRepo,
		testCmd:      testCmd,
		lintCmd:      lintCmd,
		log:          log,
		now:          time.Now,
	}, nil
}

// Execute dispatches the call to its tool family and returns the structured
// result. A nil call is the no-tool turn: nothing runs and nil comes back.
func (e *Executor) Execute(ctx context.Context, call *chat.ToolCall) *chat.ToolResult {
	if call == nil {
		return nil
	}

	var result map[string]any
	switch call.Tool {
	case chat.ToolFile:
		result = e.execFile(call)
	case chat.ToolShell:
		result = e.execShell(ctx, call)
	case chat.ToolSourceControl:
		result = e.execSourceControl(ctx, call)
	case chat.ToolRepo:
		result = e.execRepo(ctx, call)
	default:
		result = map[string]any{"ok": false, "error": "unknown_tool"}
	}

	ok, _ := result["ok"].(bool)
	e.log.Info("tool executed", "tool", call.Tool, "action", call.Arg("action"), "ok", ok)

	return &chat.ToolResult{Tool: call.Tool, Result: result}
}

func (e *Executor) execFile(call *chat.ToolCall) map[string]any {
	switch call.Arg("action") {
	case "read":
		path := call.Arg("path")
		if path == "" {
			path = call.Arg("text")
		}
		return e.files.Read(path)
	case "write":
		path := call.Arg("path")
		if path == "" {
			return map[string]any{"ok": false, "error": "missing_path"}
		}
		return e.files.Write(path, call.Arg("content"), true)
	default:
		return map[string]any{"ok": false, "error": "unknown_action"}
	}
}

func (e *Executor) execShell(ctx context.Context, call *chat.ToolCall) map[string]any {
	command := call.Arg("command")
	if call.Arg("action") == "push_intent" {
		// A push request never pushes: run the safe status command and
		// report what would have been pushed.
		status := e.shell.Run(ctx, command)
		return map[string]any{"ok": true, "type": "push_intent_checked", "status": status}
	}
	return e.shell.Run(ctx, command)
}

func (e *Executor) execRepo(ctx context.Context, call *chat.ToolCall) map[string]any {
	if call.Arg("action") != "fix_repo" {
		return map[string]any{"ok": false, "error": "unknown_repo_action"}
	}
	tests := e.shell.Run(ctx, e.testCmd)
	// The lint tool may be missing or unlisted; its rejection is reported
	// as a sub-result instead of aborting the whole operation.
	lint := e.shell.Run(ctx, e.lintCmd)

	testsOK, _ := tests["ok"].(bool)
	lintOK, _ := lint["ok"].(bool)
	return map[string]any{"ok": testsOK && lintOK, "tests": tests, "lint": lint}
}

func (e *Executor) execSourceControl(ctx context.Context, call *chat.ToolCall) map[string]any {
	if e.scm == nil {
		return map[string]any{"ok": false, "error": "source_control_unconfigured"}
	}

	switch call.Arg("action") {
	case "list_repos":
		return e.listRepos(ctx)
	case "create_repo":
		return e.createRepo(ctx, call)
	case "update_file":
		return e.updateFile(ctx, call)
	case "create_pr":
		return e.createPR(ctx, call)
	case "list_branches":
		return e.listBranches(ctx, call)
	default:
		return map[string]any{"ok": false, "error": "unknown_action"}
	}
}

func (e *Executor) listRepos(ctx context.Context) map[string]any {
	repos, err := e.scm.ListRepos(ctx)
	if err != nil {
		return scmError(err)
	}
	return map[string]any{"ok": true, "total": len(repos), "repositories": repos}
}

func (e *Executor) createRepo(ctx context.Context, call *chat.ToolCall) map[string]any {
	name := call.Arg("name")
	if name == "" {
		return map[string]any{"ok": false, "error": "missing_name"}
	}
	repo, err := e.scm.CreateRepo(ctx, name, repoDescription, false)
	if err != nil {
		return scmError(err)
	}
	return map[string]any{"ok": true, "data": repo}
}

func (e *Executor) updateFile(ctx context.Context, call *chat.ToolCall) map[string]any {
	owner, repo := e.coordinates(call)
	if repo == "" {
		return map[string]any{"ok": false, "error": "missing_repo"}
	}
	path := call.Arg("path")
	if path == "" {
		path = defaultReadmeDoc
	}
	content := call.Arg("content")
	if content == "" {
		content = call.Arg("text")
	}
	commit, err := e.scm.UpdateFile(ctx, git.FileUpdate{
		Owner:   owner,
		Repo:    repo,
		Path:    path,
		Content: content,
		Message: commitMessage,
	})
	if err != nil {
		return scmError(err)
	}
	return map[string]any{"ok": true, "data": commit}
}

func (e *Executor) createPR(ctx context.Context, call *chat.ToolCall) map[string]any {
	owner, repo := e.coordinates(call)
	if repo == "" {
		return map[string]any{"ok": false, "error": "missing_repo"}
	}

	base := call.Arg("base")
	if base == "" {
		base, _ = e.scm.DefaultBranch(ctx, owner, repo)
	}

	head := call.Arg("head")
	if head == "" {
		// No head supplied: synthesize one and best-effort create it from
		// the base's current commit. A failure here is swallowed; the PR
		// call below surfaces the real error if the branch is missing.
		head = fmt.Sprintf("agent/auto-%d", e.now().Unix())
		if err := e.scm.CreateBranchFrom(ctx, owner, repo, head, base); err != nil {
			e.log.Warn("auto branch creation failed", "head", head, "err", err)
		}
	}

	title := call.Arg("title")
	if title == "" {
		title = "Automated PR by Agent: " + e.now().UTC().Format(time.RFC3339)
	}
	body := call.Arg("body")
	if body == "" {
		body = call.Arg("text")
	}

	pr, err := e.scm.CreatePR(ctx, git.PRInput{
		Owner: owner, Repo: repo,
		Head: head, Base: base,
		Title: title, Body: body,
	})
	if err != nil {
		return scmError(err)
	}
	return map[string]any{"ok": true, "data": pr}
}

func (e *Executor) listBranches(ctx context.Context, call *chat.ToolCall) map[string]any {
	owner, repo := e.coordinates(call)
	if repo == "" {
		return map[string]any{"ok": false, "error": "missing_repo"}
	}
	branches, err := e.scm.ListBranches(ctx, owner, repo)
	if err != nil {
		return scmError(err)
	}
	return map[string]any{"ok": true, "branches": branches}
}

func (e *Executor) coordinates(call *chat.ToolCall) (owner, repo string) {
	owner = call.Arg("owner")
	if owner == "" {
		owner = e.defaultOwner
	}
	repo = call.Arg("repo")
	if repo == "" {
		repo = e.defaultRepo
	}
	return owner, repo
}

func scmError(err error) map[string]any {
	result := map[string]any{"ok": false, "error": err.Error()}
	if status := git.StatusCode(err); status != 0 {
		result["status"] = status
	}
	return result
}
