// Package router classifies the most recent user message into at most one
// tool invocation. Classification is deterministic and side-effect free: an
// ordered rule table is scanned top to bottom and the first matching rule
// wins. Several rules share keywords ("create repo my-tool branches" must
// resolve to repo creation, not branch listing), so the order is load-bearing
// and rules must not be reordered.
package router

import (
	"regexp"
	"strings"

	"github.com/jadenj13/opsagent/internals/chat"
)

type rule struct {
	name  string
	match []*regexp.Regexp
	build func(msg string) *chat.ToolCall
}

// Router holds the compiled rule table plus the environment-derived
// repository defaults injected at construction, keeping Route itself pure.
type Router struct {
	rules []rule
}

// Config carries fallback coordinates for rules that accept an optional
// owner/repo pair (pull requests, branch listing).
type Config struct {
	DefaultOwner string
	DefaultRepo  string
}

var (
	reReadMatch  = compileAll(`\bread file\b`, `\breadfile\b`, `\bshow file\b`, `\bopen file\b`)
	reReadPath   = regexp.MustCompile(`(?i)read (?:file )?(.+)$`)
	reWriteMatch = compileAll(`\bwrite file\b`, `\bcreate file\b`, `\badd file\b`, `\bupdate file\b`, `\bedit file\b`)
	reWriteColon = regexp.MustCompile(`(?i)(?:write|create|update|edit) (?:file )?([^:]+):\s*(.+)$`)
	reWritePath  = regexp.MustCompile(`(?i)(?:write|create|update|edit) (?:file )?(.+)$`)

	reNewRepoMatch  = compileAll(`\bcreate repo\b`, `\bcreate repository\b`, `\bmake (?:a )?repo\b`, `\bnew repo\b`)
	reNewRepoName   = regexp.MustCompile(`(?i)(?:repo|repository|repo called|repo named)\s+([A-Za-z0-9._-]+)`)
	reListRepoMatch = compileAll(`\blist repos\b`, `\bshow repos\b`, `\bmy github repos\b`, `\brepositories\b`)

	reReadmeMatch   = compileAll(`\bupdate readme\b`, `\bedit readme\.md\b`)
	reReadmeCapture = regexp.MustCompile(`(?i)update readme (?:for\s+([A-Za-z0-9_-]+/[A-Za-z0-9_-]+))?(?: with|:)?\s*(.+)?`)

	rePRMatch    = compileAll(`\bcreate pr\b`, `\bcreate pull request\b`, `\bopen pr\b`, `\bopen pull request\b`, `\bmake a pull request\b`)
	reOwnerRepo  = regexp.MustCompile(`([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+)`)
	// Keywords are case-insensitive but the captures keep the original case:
	// branch names are case-sensitive.
	reHeadToBase = regexp.MustCompile(`(?i)from\s+([A-Za-z0-9_\-/]+)\s+to\s+([A-Za-z0-9_\-/]+)`)

	reBranchesMatch = compileAll(`\blist branches\b`, `\bshow branches\b`, `\bbranches\b`)
	rePushMatch     = compileAll(`\bpush my code\b`, `\bpush code\b`, `\bpush repo\b`)
	reFixMatch      = compileAll(`\bfix my repo\b`, `\bfix repo\b`, `\bmake tests pass\b`, `\brun tests\b`)

	reShellMatch = compileAll(`^\s*run:`, `\bexecute\b`, `\bshell\b`, `^\s*ls\b`, `^\s*git\b`, `pytest`, `npm`)
	reShellRun   = regexp.MustCompile(`(?i)run:\s*(.+)$`)
)

func New(cfg Config) *Router {
	return &Router{rules: []rule{
		{name: "file_read", match: reReadMatch, build: buildFileRead},
		{name: "file_write", match: reWriteMatch, build: buildFileWrite},
		{name: "repo_create", match: reNewRepoMatch, build: buildRepoCreate},
		{name: "repo_list", match: reListRepoMatch, build: buildRepoList},
		{name: "readme_update", match: reReadmeMatch, build: buildReadmeUpdate},
		{name: "pr_create", match: rePRMatch, build: buildPRCreate(cfg)},
		{name: "branch_list", match: reBranchesMatch, build: buildBranchList(cfg)},
		{name: "push_intent", match: rePushMatch, build: buildPushIntent},
		{name: "repo_fix", match: reFixMatch, build: buildRepoFix},
		{name: "shell_exec", match: reShellMatch, build: buildShellExec},
	}}
}

// Route inspects the content of the most recently appended message and
// returns the matching tool call, or nil when the conversation is empty or
// no rule matches. A nil result is a valid terminal outcome, not an error.
func (r *Router) Route(state chat.State) *chat.ToolCall {
	last := state.LastMessage()
	if last == nil {
		return nil
	}
	msg := strings.TrimSpace(last.Content)
	if msg == "" {
		return nil
	}
	lower := strings.ToLower(msg)

	for _, rl := range r.rules {
		if matchAny(rl.match, lower) {
			return rl.build(msg)
		}
	}
	return nil
}

func buildFileRead(msg string) *chat.ToolCall {
	args := map[string]string{"action": "read", "text": msg}
	if m := reReadPath.FindStringSubmatch(msg); m != nil {
		args["path"] = strings.TrimSpace(m[1])
	}
	return &chat.ToolCall{Tool: chat.ToolFile, Args: args}
}

func buildFileWrite(msg string) *chat.ToolCall {
	args := map[string]string{"action": "write", "text": msg}
	if m := reWriteColon.FindStringSubmatch(msg); m != nil {
		args["path"] = strings.TrimSpace(m[1])
		args["content"] = strings.TrimSpace(m[2])
	} else if m := reWritePath.FindStringSubmatch(msg); m != nil {
		// Path-only form: content stays null and the executor decides.
		args["path"] = strings.TrimSpace(m[1])
	}
	return &chat.ToolCall{Tool: chat.ToolFile, Args: args}
}

func buildRepoCreate(msg string) *chat.ToolCall {
	args := map[string]string{"action": "create_repo", "text": msg}
	if m := reNewRepoName.FindStringSubmatch(msg); m != nil {
		args["name"] = m[1]
	}
	return &chat.ToolCall{Tool: chat.ToolSourceControl, Args: args}
}

func buildRepoList(msg string) *chat.ToolCall {
	return &chat.ToolCall{Tool: chat.ToolSourceControl, Args: map[string]string{
		"action": "list_repos",
		"text":   msg,
	}}
}

func buildReadmeUpdate(msg string) *chat.ToolCall {
	args := map[string]string{"action": "update_file", "path": "README.md", "text": msg}
	if m := reReadmeCapture.FindStringSubmatch(msg); m != nil {
		if m[1] != "" {
			owner, repo, _ := strings.Cut(m[1], "/")
			args["owner"] = owner
			args["repo"] = repo
		}
		if m[2] != "" {
			args["content"] = strings.TrimSpace(m[2])
		}
	}
	return &chat.ToolCall{Tool: chat.ToolSourceControl, Args: args}
}

func buildPRCreate(cfg Config) func(string) *chat.ToolCall {
	return func(msg string) *chat.ToolCall {
		args := map[string]string{"action": "create_pr", "text": msg}
		if m := reOwnerRepo.FindStringSubmatch(msg); m != nil {
			args["owner"] = m[1]
			args["repo"] = m[2]
		} else {
			setIfNotEmpty(args, "owner", cfg.DefaultOwner)
			setIfNotEmpty(args, "repo", cfg.DefaultRepo)
		}
		if m := reHeadToBase.FindStringSubmatch(msg); m != nil {
			args["head"] = m[1]
			args["base"] = m[2]
		}
		return &chat.ToolCall{Tool: chat.ToolSourceControl, Args: args}
	}
}

func buildBranchList(cfg Config) func(string) *chat.ToolCall {
	return func(msg string) *chat.ToolCall {
		args := map[string]string{"action": "list_branches", "text": msg}
		if m := reOwnerRepo.FindStringSubmatch(msg); m != nil {
			args["owner"] = m[1]
			args["repo"] = m[2]
		} else {
			setIfNotEmpty(args, "owner", cfg.DefaultOwner)
			setIfNotEmpty(args, "repo", cfg.DefaultRepo)
		}
		return &chat.ToolCall{Tool: chat.ToolSourceControl, Args: args}
	}
}

// buildPushIntent maps every push phrasing to a read-only status check. No
// rule in this table ever produces a mutating push command.
func buildPushIntent(msg string) *chat.ToolCall {
	return &chat.ToolCall{Tool: chat.ToolShell, Args: map[string]string{
		"action":  "push_intent",
		"command": "git status -b",
		"text":    msg,
	}}
}

func buildRepoFix(msg string) *chat.ToolCall {
	return &chat.ToolCall{Tool: chat.ToolRepo, Args: map[string]string{
		"action": "fix_repo",
		"text":   msg,
	}}
}

func buildShellExec(msg string) *chat.ToolCall {
	cmd := msg
	if m := reShellRun.FindStringSubmatch(msg); m != nil {
		cmd = strings.TrimSpace(m[1])
	}
	return &chat.ToolCall{Tool: chat.ToolShell, Args: map[string]string{
		"action":  "exec",
		"command": cmd,
		"text":    msg,
	}}
}

func setIfNotEmpty(args map[string]string, key, value string) {
	if value != "" {
		args[key] = value
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func matchAny(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
