package mutation

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is a disposable mirror of the project under mutation.
// The whole tree is copied into a temp directory so the test suite
// still resolves its imports, and mutants are only ever written to
// the mirrored copy. The original tree is never written, so a crash
// mid-run cannot corrupt the user's source.
type Workspace struct {
	// Root is the mirrored project root; the test runner executes
	// here.
	Root string

	// Path is the target file inside the mirror.
	Path string

	original []byte
	mode     os.FileMode
	backed   bool
}

// NewWorkspace resolves the target file against the project root,
// mirrors the root into a temp directory, and snapshots the target's
// contents. A target outside the root is rejected so a mutant can
// never touch files the caller did not name.
func NewWorkspace(root, target string) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}
	rel, err := filepath.Rel(absRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("target %s is outside root %s", target, root)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", target, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	tmp, err := os.MkdirTemp("", "scry-mutate-")
	if err != nil {
		return nil, fmt.Errorf("creating mirror: %w", err)
	}
	if err := mirrorTree(absRoot, tmp); err != nil {
		os.RemoveAll(tmp)
		return nil, fmt.Errorf("mirroring %s: %w", absRoot, err)
	}

	return &Workspace{
		Root:     tmp,
		Path:     filepath.Join(tmp, rel),
		original: data,
		mode:     info.Mode().Perm(),
		backed:   true,
	}, nil
}

// mirrorTree copies every regular file under src into dst, preserving
// relative layout and permissions. Version-control metadata is
// skipped.
func mirrorTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, info.Mode().Perm())
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, info.Mode().Perm())
	})
}

// Original returns the snapshotted contents of the target file.
func (w *Workspace) Original() []byte {
	return w.original
}

// WriteMutated replaces the mirrored target file with the mutated
// rendering.
func (w *Workspace) WriteMutated(data []byte) error {
	if !w.backed {
		return fmt.Errorf("no backup of %s, refusing to overwrite", w.Path)
	}
	if err := os.WriteFile(w.Path, data, w.mode); err != nil {
		return fmt.Errorf("writing mutated %s: %w", w.Path, err)
	}
	return nil
}

// Restore writes the original bytes back to the mirrored target. A
// missing backup is a fatal setup error rather than a silent no-op.
func (w *Workspace) Restore() error {
	if !w.backed {
		return fmt.Errorf("no backup of %s to restore", w.Path)
	}
	if err := os.WriteFile(w.Path, w.original, w.mode); err != nil {
		return fmt.Errorf("restoring %s: %w", w.Path, err)
	}
	return nil
}

// Remove deletes the mirror.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Root)
}
