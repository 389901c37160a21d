// Package workspace maps user identifiers to confined per-user directories
// and answers entry-file existence checks for them.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrInvalidUser  = errors.New("invalid user identifier")
	ErrOutsideRoot  = errors.New("path escapes workspace")
	ErrInvalidEntry = errors.New("invalid entry file path")
)

// userPattern matches filesystem-safe user tokens.
var userPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Resolver confines every per-user workspace under a single root directory.
type Resolver struct {
	root string
}

func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Resolver{root: abs}, nil
}

// Resolve returns the confined workspace directory for a user, creating it
// on first use. User tokens that could traverse outside the root are
// rejected outright rather than sanitized further.
func (r *Resolver) Resolve(user string) (string, error) {
	if !userPattern.MatchString(user) || strings.Contains(user, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	dir := filepath.Join(r.root, user)
	if !strings.HasPrefix(dir, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, user)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	return dir, nil
}

// EntryExists reports whether the relative entry path names a regular file
// inside the workspace directory.
func (r *Resolver) EntryExists(dir, entry string) (bool, error) {
	if entry == "" || filepath.IsAbs(entry) {
		return false, fmt.Errorf("%w: %q", ErrInvalidEntry, entry)
	}
	full := filepath.Join(dir, filepath.Clean(entry))
	if !strings.HasPrefix(full, dir+string(filepath.Separator)) {
		return false, fmt.Errorf("%w: %q", ErrOutsideRoot, entry)
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Root returns the absolute workspace root.
func (r *Resolver) Root() string {
	return r.root
}
