// Package workspace materializes candidate programs as throwaway copies of the
// project so that trials never touch the original tree or each other.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
)

// ErrIO is wrapped by every *IOError.
var ErrIO = errors.New("workspace io failure")

// DefaultExclude lists directory names never copied into a workspace.
var DefaultExclude = []string{".git", "target"}

// IOError describes a failed workspace operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("workspace %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// Options configures a Manager.
type Options struct {
	ProjectDir string   // root of the project to copy
	Target     string   // target file, absolute or relative to ProjectDir; empty for a plain copy
	TempDir    string   // parent of the session directory; os.TempDir() when empty
	Exclude    []string // names skipped while copying; DefaultExclude when nil
	SessionID  string   // used in the session directory name
}

// Manager owns the session directory and the snapshot of project files.
type Manager struct {
	project string
	target  string // slash-separated, relative to project
	root    string
	files   []string // relative paths, target excluded
	seq     atomic.Uint64
}

// Workspace is one materialized candidate.
type Workspace struct {
	Dir    string
	Target string // absolute path of the target file inside Dir
	Slot   int
}

// NewManager snapshots the project file list and creates the session directory.
func NewManager(opts Options) (*Manager, error) {
	project, err := filepath.Abs(opts.ProjectDir)
	if err != nil {
		return nil, &IOError{Op: "resolve", Path: opts.ProjectDir, Err: err}
	}
	var rel string
	if opts.Target != "" {
		target := opts.Target
		if !filepath.IsAbs(target) {
			target = filepath.Join(project, target)
		}
		rel, err = filepath.Rel(project, target)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return nil, &IOError{Op: "resolve", Path: opts.Target, Err: fmt.Errorf("target is not inside project %s", project)}
		}
		rel = filepath.ToSlash(rel)
	}

	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}
	files, err := listFiles(project, exclude)
	if err != nil {
		return nil, &IOError{Op: "scan", Path: project, Err: err}
	}
	if rel != "" {
		files = slices.DeleteFunc(files, func(f string) bool { return f == rel })
	}

	tmp := opts.TempDir
	if tmp == "" {
		tmp = os.TempDir()
	}
	name := "ddebug-" + opts.SessionID
	if opts.SessionID == "" {
		name = "ddebug-*"
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: tmp, Err: err}
	}
	root, err := os.MkdirTemp(tmp, name)
	if err != nil {
		return nil, &IOError{Op: "mkdir", Path: tmp, Err: err}
	}

	return &Manager{
		project: project,
		target:  rel,
		root:    root,
		files:   files,
	}, nil
}

// Root returns the session directory.
func (m *Manager) Root() string { return m.root }

// ProjectDir returns the absolute project root.
func (m *Manager) ProjectDir() string { return m.project }

// TargetRel returns the target path relative to the project, slash-separated.
func (m *Manager) TargetRel() string { return m.target }

// FileCount returns the number of files copied besides the target.
func (m *Manager) FileCount() int { return len(m.files) }

// CacheDir returns the persistent build cache directory of a slot, creating it.
// Build artifacts survive across the trials a slot runs.
func (m *Manager) CacheDir(slot int) (string, error) {
	dir := filepath.Join(m.root, "cache", strconv.Itoa(slot))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return dir, nil
}

// Prepare materializes a workspace holding content as the target file. A
// failed attempt is cleaned up and retried once.
func (m *Manager) Prepare(ctx context.Context, slot int, content []byte) (*Workspace, error) {
	var err error
	for range 2 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ws *Workspace
		ws, err = m.materialize(slot, content)
		if err == nil {
			return ws, nil
		}
	}
	return nil, err
}

// Snapshot materializes an unmodified copy of the project.
func (m *Manager) Snapshot(ctx context.Context, slot int) (*Workspace, error) {
	var content []byte
	if m.target != "" {
		var err error
		content, err = os.ReadFile(filepath.Join(m.project, filepath.FromSlash(m.target)))
		if err != nil {
			return nil, &IOError{Op: "read", Path: m.target, Err: err}
		}
	}
	return m.Prepare(ctx, slot, content)
}

func (m *Manager) materialize(slot int, content []byte) (*Workspace, error) {
	dir := filepath.Join(m.root, fmt.Sprintf("ws-%d-%d", slot, m.seq.Add(1)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	ws := &Workspace{Dir: dir, Slot: slot}

	for _, rel := range m.files {
		src := filepath.Join(m.project, filepath.FromSlash(rel))
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := copyFile(src, dst); err != nil {
			_ = os.RemoveAll(dir)
			return nil, &IOError{Op: "copy", Path: rel, Err: err}
		}
	}
	if m.target == "" {
		return ws, nil
	}
	ws.Target = filepath.Join(dir, filepath.FromSlash(m.target))
	if err := os.MkdirAll(filepath.Dir(ws.Target), 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return nil, &IOError{Op: "mkdir", Path: filepath.Dir(ws.Target), Err: err}
	}
	if err := os.WriteFile(ws.Target, content, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, &IOError{Op: "write", Path: m.target, Err: err}
	}
	return ws, nil
}

// Remove deletes the workspace directory.
func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.Dir); err != nil {
		return &IOError{Op: "remove", Path: w.Dir, Err: err}
	}
	return nil
}

// Close removes the whole session directory, caches included.
func (m *Manager) Close() error {
	if err := os.RemoveAll(m.root); err != nil {
		return &IOError{Op: "remove", Path: m.root, Err: err}
	}
	return nil
}

func listFiles(root string, exclude []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if slices.Contains(exclude, d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func copyFile(src, dst string) error {
	// #nosec G304 -- paths come from the project snapshot
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
