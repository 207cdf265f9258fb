package pathsafe

// Package pathsafe resolves user-supplied relative paths against a
// configured root directory and decides whether resolved paths stay inside
// it. Every ambiguous or malformed input fails closed: Resolve falls back
// to the root and IsWithinRoot answers false. Callers never learn whether
// a rejected path existed.

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver performs fail-closed path resolution against a fixed root.
type Resolver struct {
	root string
}

// NewResolver returns a Resolver for the given root directory. The root is
// cleaned but deliberately not required to exist at construction time;
// resolution canonicalizes against the live filesystem on every call.
func NewResolver(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Root returns the configured root directory.
func (r *Resolver) Root() string { return r.root }

// Resolve joins a user-supplied relative path onto the root and
// canonicalizes it. It returns the root itself, never an error, whenever
// the input is suspicious or cannot be proven to stay inside the root:
//
//   - empty relative path
//   - any ".." substring or doubled separator (pre-filter; the
//     canonicalization below is the real defense)
//   - canonicalization failure (nonexistent path, permission error)
//   - canonical result outside the canonical root
func (r *Resolver) Resolve(relative string) string {
	if relative == "" {
		return r.root
	}
	if strings.Contains(relative, "..") ||
		strings.Contains(relative, "//") ||
		strings.Contains(relative, `\\`) {
		return r.root
	}

	canonRoot, err := filepath.EvalSymlinks(r.root)
	if err != nil {
		return r.root
	}

	candidate, err := filepath.EvalSymlinks(filepath.Join(r.root, filepath.FromSlash(relative)))
	if err != nil {
		return r.root
	}

	if !contains(canonRoot, candidate) {
		return r.root
	}
	return candidate
}

// IsWithinRoot reports whether path is an existing directory inside the
// root. Symbolic links are always rejected, regardless of where they
// point. Note the coupling: this check requires the path to currently be a
// directory, so callers gating access to a file must check the file's
// parent directory, not the file itself.
func (r *Resolver) IsWithinRoot(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return false
	}
	if !info.IsDir() {
		return false
	}

	canonRoot, err := filepath.EvalSymlinks(r.root)
	if err != nil {
		return false
	}
	canonPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	return contains(canonRoot, canonPath)
}

// RelativeDir returns the directory key for a canonical absolute path
// inside the root: the path relative to the root in slash form, "" for the
// root itself. The second return is false when the path is not inside the
// root.
func (r *Resolver) RelativeDir(abs string) (string, bool) {
	canonRoot, err := filepath.EvalSymlinks(r.root)
	if err != nil {
		return "", false
	}
	if !contains(canonRoot, abs) {
		return "", false
	}
	rel, err := filepath.Rel(canonRoot, abs)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

// contains compares path segments, not raw string prefixes, so that
// /x/secure2 is not treated as being inside /x/secure.
func contains(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
