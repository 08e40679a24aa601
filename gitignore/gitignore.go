// Package gitignore evaluates paths against git's real ignore semantics:
// anchored and unanchored patterns, negation, directory-only patterns, and
// nested .gitignore scopes where the nearest scope wins and later lines in a
// file override earlier ones.
package gitignore

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// entry is one parsed .gitignore line.
type entry struct {
	raw      string // original line, for diagnostics
	pattern  string // cleaned match pattern
	negate   bool   // line started with !
	dirOnly  bool   // line ended with /
	anchored bool   // leading / or internal slash: match relative to the scope dir only
}

// Scope holds the parsed contents of a single .gitignore file.
type Scope struct {
	// Dir is the absolute directory the file lives in; its patterns apply
	// to paths under this directory only.
	Dir     string
	entries []entry
}

// Index is the combined view of every .gitignore found under a root.
type Index struct {
	root   string
	scopes map[string]*Scope // keyed by absolute scope directory
	logger *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for fail-open parse warnings.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// Build scans root and all nested directories for .gitignore files.
// Directories named .git are not descended into. Unreadable or malformed
// files degrade to fewer rules, never to an error: the index fails open.
func Build(root string, opts ...Option) (*Index, error) {
	ix := &Index{
		root:   filepath.Clean(root),
		scopes: make(map[string]*Scope),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}

	err := filepath.WalkDir(ix.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			ix.logger.Warn("skipping unreadable .gitignore", "path", p, "error", err)
			return nil
		}
		defer f.Close()
		sc := ParseScope(filepath.Dir(p), f, ix.logger)
		if len(sc.entries) > 0 {
			ix.scopes[sc.Dir] = sc
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// ParseScope reads .gitignore lines for the given directory. Blank lines and
// comments are skipped; a line whose pattern cannot be compiled is skipped
// with a warning rather than failing the whole scope.
func ParseScope(dir string, r io.Reader, logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.Default()
	}
	sc := &Scope{Dir: filepath.Clean(dir)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		e := entry{raw: line}
		p := line
		if strings.HasPrefix(p, "!") {
			e.negate = true
			p = p[1:]
		}
		// \# and \! introduce literal # and ! patterns
		if strings.HasPrefix(p, `\#`) || strings.HasPrefix(p, `\!`) {
			p = p[1:]
		}
		if strings.HasSuffix(p, "/") {
			e.dirOnly = true
			p = strings.TrimRight(p, "/")
		}
		if strings.HasPrefix(p, "/") {
			e.anchored = true
			p = strings.TrimPrefix(p, "/")
		} else if strings.Contains(p, "/") {
			// git anchors any pattern with an internal slash
			e.anchored = true
		}
		if p == "" || !doublestar.ValidatePattern(p) {
			logger.Warn("skipping malformed .gitignore line", "dir", dir, "line", line)
			continue
		}
		e.pattern = p
		sc.entries = append(sc.entries, e)
	}

	return sc
}

// IsIgnored reports whether the absolute path is ignored. Paths outside the
// indexed root are never ignored.
func (ix *Index) IsIgnored(target string) bool {
	ignored, _ := ix.Match(target)
	return ignored
}

// Match is IsIgnored plus the .gitignore line that decided the outcome.
func (ix *Index) Match(target string) (bool, string) {
	rel, err := filepath.Rel(ix.root, filepath.Clean(target))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, ""
	}
	rel = filepath.ToSlash(rel)

	// A path inside an ignored directory is ignored regardless of deeper
	// negations, so each ancestor is decided before the target itself.
	segs := strings.Split(rel, "/")
	for i := 1; i <= len(segs); i++ {
		sub := strings.Join(segs[:i], "/")
		isDir := i < len(segs) || ix.statIsDir(sub)
		if ignored, line, matched := ix.decide(sub, isDir); matched {
			if ignored {
				return true, line
			}
			if i == len(segs) {
				return false, line
			}
		}
	}
	return false, ""
}

// decide evaluates one path against every applicable scope, nearest first.
// Within a scope, later lines win, so entries are scanned in reverse.
func (ix *Index) decide(rel string, isDir bool) (ignored bool, line string, matched bool) {
	dir := path.Dir(rel) // "." when rel is a top-level name
	for {
		scopeDir := ix.root
		if dir != "." {
			scopeDir = filepath.Join(ix.root, filepath.FromSlash(dir))
		}
		if sc, ok := ix.scopes[scopeDir]; ok {
			scopeRel := rel
			if dir != "." {
				scopeRel = strings.TrimPrefix(rel, dir+"/")
			}
			if ig, raw, m := sc.match(scopeRel, isDir); m {
				return ig, raw, true
			}
		}
		if dir == "." {
			return false, "", false
		}
		dir = path.Dir(dir)
	}
}

// match evaluates rel (relative to the scope's directory) against the scope.
func (sc *Scope) match(rel string, isDir bool) (ignored bool, line string, matched bool) {
	for i := len(sc.entries) - 1; i >= 0; i-- {
		e := sc.entries[i]
		if e.dirOnly && !isDir {
			continue
		}
		if e.matches(rel) {
			return !e.negate, e.raw, true
		}
	}
	return false, "", false
}

func (e entry) matches(rel string) bool {
	if ok, _ := doublestar.Match(e.pattern, rel); ok {
		return true
	}
	if !e.anchored {
		// an unanchored pattern matches at any depth below the scope
		if ok, _ := doublestar.Match("**/"+e.pattern, rel); ok {
			return true
		}
	}
	return false
}

func (ix *Index) statIsDir(rel string) bool {
	info, err := os.Stat(filepath.Join(ix.root, filepath.FromSlash(rel)))
	return err == nil && info.IsDir()
}
