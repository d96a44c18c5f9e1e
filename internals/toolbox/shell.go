package toolbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultShellTimeout = 20 * time.Second
	maxOutputBytes      = 65536
)

// whitelist is the fixed set of allowed command prefixes. Anything else is
// rejected before a process is spawned.
var whitelist = []string{
	"ls", "pwd", "cat", "echo",
	"git status", "git rev-parse", "git log",
	"python", "pip", "npm", "pytest",
}

// Shell runs whitelisted commands under a hard deadline. The deadline is the
// only cancellation boundary in the pipeline: when it expires the process is
// killed and the result reports a timeout.
type Shell struct {
	workDir string
	timeout time.Duration
}

func NewShell(workDir string, timeout time.Duration) *Shell {
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}
	if workDir == "" {
		workDir = "."
	}
	return &Shell{workDir: workDir, timeout: timeout}
}

func whitelisted(command string) bool {
	for _, w := range whitelist {
		if strings.HasPrefix(command, w) {
			return true
		}
	}
	return false
}

// Run executes command and returns the shell tool's result payload. Every
// path produces a map carrying ok, stdout and stderr; failures add a stable
// error code (command_not_whitelisted, timeout, exec_error).
//
// The command is split into argv and executed without a shell, so
// metacharacters (";", "|", "$(...)") are plain arguments to the whitelisted
// binary and can never chain a second command past the prefix check.
func (s *Shell) Run(ctx context.Context, command string) map[string]any {
	command = strings.TrimSpace(command)
	if !whitelisted(command) {
		return map[string]any{
			"ok": false, "error": "command_not_whitelisted",
			"stdout": "", "stderr": "Command not allowed",
		}
	}

	argv, err := splitCommand(command)
	if err != nil || len(argv) == 0 {
		return map[string]any{
			"ok": false, "error": "exec_error",
			"stdout": "", "stderr": "malformed command",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = s.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return map[string]any{
			"ok": false, "error": "timeout",
			"stdout": capOutput(stdout.String()), "stderr": "Command timed out",
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The process ran to completion; a nonzero exit is data, not a
		// tool failure. The exit code and stderr carry the story.
		return map[string]any{
			"ok": true, "exit_code": exitErr.ExitCode(),
			"stdout": capOutput(stdout.String()), "stderr": capOutput(stderr.String()),
		}
	}
	if err != nil {
		return map[string]any{
			"ok": false, "error": "exec_error",
			"stdout": "", "stderr": err.Error(),
		}
	}
	return map[string]any{
		"ok": true, "exit_code": 0,
		"stdout": capOutput(stdout.String()), "stderr": capOutput(stderr.String()),
	}
}

// splitCommand tokenizes a command line into argv, honouring single and
// double quotes so arguments like python -c 'import time' survive as one
// token. An unterminated quote is an error.
func splitCommand(command string) ([]string, error) {
	var argv []string
	var cur strings.Builder
	inToken := false
	var quote byte

	for i := 0; i < len(command); i++ {
		c := command[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inToken = true
		case c == ' ' || c == '\t':
			if inToken {
				argv = append(argv, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if inToken {
		argv = append(argv, cur.String())
	}
	return argv, nil
}

func capOutput(s string) string {
	if len(s) > maxOutputBytes {
		return s[:maxOutputBytes] + "\n... (output truncated)"
	}
	return s
}
