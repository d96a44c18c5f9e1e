package toolbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Files reads and writes text files confined to a fixed project root. Paths
// that resolve outside the root are rejected before any I/O happens.
type Files struct {
	root string
}

func NewFiles(root string) (*Files, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	return &Files{root: abs}, nil
}

func (f *Files) Root() string { return f.root }

func (f *Files) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	resolved, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if resolved != f.root && !strings.HasPrefix(resolved, f.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the project root", path)
	}
	return resolved, nil
}

func (f *Files) Read(path string) map[string]any {
	resolved, err := f.resolve(path)
	if err != nil {
		return map[string]any{"ok": false, "error": "permission_denied", "content": ""}
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{"ok": false, "error": "not_found", "content": ""}
	}
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error(), "content": ""}
	}
	return map[string]any{"ok": true, "content": string(data)}
}

func (f *Files) Write(path, content string, createDirs bool) map[string]any {
	resolved, err := f.resolve(path)
	if err != nil {
		return map[string]any{"ok": false, "error": "permission_denied"}
	}
	if createDirs {
		if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
			return map[string]any{"ok": false, "error": err.Error()}
		}
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return map[string]any{"ok": false, "error": err.Error()}
	}
	return map[string]any{"ok": true}
}
