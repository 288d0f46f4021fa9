// Package scope decides which on-disk store an operation targets.
package scope

import (
	"fmt"
	"os"
	"path/filepath"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
)

// Scope is the visibility boundary of a store.
type Scope int

const (
	// Global is the per-user store.
	Global Scope = iota
	// Local is the store rooted at a project directory.
	Local
)

// String returns "global" or "local".
func (s Scope) String() string {
	if s == Local {
		return "local"
	}
	return "global"
}

// Location pairs a scope with its absolute store directory.
type Location struct {
	Scope Scope
	// Dir is the store directory.
	Dir string
	// Root is the project root for Local, empty for Global.
	Root string
}

// Label identifies the location for output, e.g. "local: myproj" or "global".
func (l Location) Label() string {
	if l.Scope == Local {
		return fmt.Sprintf("local: %s", filepath.Base(l.Root))
	}
	return "global"
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Location Location
	// Note is an advisory message for the user, not an error.
	Note string
}

// Marker names that signal a project boundary.
const (
	markerGit = ".git"
)

// Resolver resolves scopes against fixed store names.
type Resolver struct {
	// GlobalDir is the per-user store directory.
	GlobalDir string
	// StoreDirName is the store directory name inside a project root.
	StoreDirName string
	// IsInitialized reports whether a store directory holds an initialized store.
	// Nil means "the directory exists".
	IsInitialized func(dir string) bool
}

// Resolve picks the store for an operation started in startDir.
// It never creates files or directories.
func (r Resolver) Resolve(startDir string, explicitLocal, explicitGlobal bool) (Resolution, error) {
	if explicitLocal && explicitGlobal {
		return Resolution{}, ramerrors.New(ramerrors.ErrCodeConflictingScope,
			"--local and --global cannot be used together", nil).
			WithSuggestion("pass only one of --local or --global")
	}

	global := Resolution{Location: Location{Scope: Global, Dir: absOrSelf(r.GlobalDir)}}
	if explicitGlobal {
		return global, nil
	}

	root, found, err := r.FindRoot(startDir)
	if err != nil {
		return Resolution{}, err
	}

	if explicitLocal {
		if !found {
			return Resolution{}, ramerrors.New(ramerrors.ErrCodeNoProjectFound,
				fmt.Sprintf("no project found in %s or any parent directory", startDir), nil).
				WithSuggestion("run 'ram init' in your project root or use --global")
		}
		return Resolution{Location: r.local(root)}, nil
	}

	if !found {
		return global, nil
	}

	loc := r.local(root)
	if r.initialized(loc.Dir) {
		return Resolution{Location: loc}, nil
	}

	global.Note = fmt.Sprintf("project at %s has no local store; using global (run 'ram init' there to create one)", root)
	return global, nil
}

// FindRoot walks upward from startDir and returns the nearest ancestor that holds
// either a store directory or a .git entry. The directory that contains the
// global store is never a project root, whatever markers it holds, so a Local
// location can never coincide with the Global one.
func (r Resolver) FindRoot(startDir string) (string, bool, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to get absolute path: %w", err)
	}
	globalDir := absOrSelf(r.GlobalDir)

	current := abs
	for {
		storeDir := filepath.Join(current, r.StoreDirName)
		if storeDir != globalDir {
			if isDir(storeDir) || exists(filepath.Join(current, markerGit)) {
				return current, true, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false, nil
		}
		current = parent
	}
}

func (r Resolver) local(root string) Location {
	return Location{Scope: Local, Dir: filepath.Join(root, r.StoreDirName), Root: root}
}

func (r Resolver) initialized(dir string) bool {
	if r.IsInitialized != nil {
		return r.IsInitialized(dir)
	}
	return isDir(dir)
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// exists accepts files too: a .git file marks a worktree or submodule.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
