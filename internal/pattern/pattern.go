// Package pattern compiles shell-glob patterns for the two matching domains
// the guard evaluates: file paths and shell command strings.
//
// File patterns use doublestar semantics: `*` stops at path separators,
// `**` crosses them. Command patterns treat whitespace the way file patterns
// treat `/` — `*` and `?` never cross a word boundary, so "rm -rf /*" matches
// "rm -rf /tmp" but not "rm -rf / && echo done".
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalid is returned when a pattern cannot be compiled.
var ErrInvalid = errors.New("pattern: invalid syntax")

// File is a compiled file-path pattern.
type File struct {
	raw      string
	anyDepth bool // pattern has no slash: match the basename at any depth
}

// CompileFile validates and compiles a file-path glob pattern.
func CompileFile(raw string) (*File, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalid)
	}
	if !doublestar.ValidatePattern(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	return &File{
		raw:      raw,
		anyDepth: !strings.Contains(raw, "/"),
	}, nil
}

// Match reports whether the pattern matches the given slash-separated path.
// A pattern without a slash matches its target at any depth, so "package.json"
// matches both "package.json" and "pkg/sub/package.json".
func (f *File) Match(path string) bool {
	if path == "" {
		return false
	}
	if ok, _ := doublestar.Match(f.raw, path); ok {
		return true
	}
	if f.anyDepth {
		if ok, _ := doublestar.Match("**/"+f.raw, path); ok {
			return true
		}
	}
	return false
}

// String returns the original pattern text.
func (f *File) String() string { return f.raw }

// Mode selects how a command pattern is applied to a command string.
type Mode int

const (
	// Full requires the pattern to match the entire command string.
	Full Mode = iota
	// Prefix requires the pattern to match the command formed by the first
	// k whitespace-delimited words, for some k. "curl *" matches
	// "curl -X POST https://x" without a trailing wildcard, and still
	// refuses "echo test && curl https://x".
	Prefix
)

// Command is a compiled shell-command pattern.
type Command struct {
	raw  string
	mode Mode
	re   *regexp.Regexp
}

// CompileCommand validates and compiles a command glob pattern with the
// given match mode.
func CompileCommand(raw string, mode Mode) (*Command, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalid)
	}
	expr, err := translate(raw)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalid, raw, err)
	}
	return &Command{raw: raw, mode: mode, re: re}, nil
}

// Match reports whether the pattern matches the command per its mode.
func (c *Command) Match(command string) bool {
	switch c.mode {
	case Prefix:
		words := strings.Fields(command)
		for k := 1; k <= len(words); k++ {
			if c.re.MatchString(strings.Join(words[:k], " ")) {
				return true
			}
		}
		return false
	default:
		return c.re.MatchString(command)
	}
}

// String returns the original pattern text.
func (c *Command) String() string { return c.raw }

// ModeString returns the mode name as used in configuration files.
func (c *Command) ModeString() string {
	if c.mode == Prefix {
		return "prefix"
	}
	return "full"
}

// translate converts a command glob into an anchored regular expression.
// Wildcards never cross whitespace; character classes pass through with
// `[!...]` rewritten to `[^...]`.
func translate(glob string) (string, error) {
	var b strings.Builder
	b.WriteString(`\A`)

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch ch := runes[i]; ch {
		case '*':
			b.WriteString(`\S*`)
		case '?':
			b.WriteString(`\S`)
		case '[':
			j := i + 1
			if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
				j++
			}
			if j < len(runes) && runes[j] == ']' {
				j++ // leading ] is a literal member of the class
			}
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				return "", fmt.Errorf("%w: %q: unterminated character class", ErrInvalid, glob)
			}
			class := string(runes[i+1 : j])
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i = j
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				return "", fmt.Errorf("%w: %q: trailing escape", ErrInvalid, glob)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}

	b.WriteString(`\z`)
	return b.String(), nil
}
