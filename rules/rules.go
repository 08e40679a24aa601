// Package rules defines the typed representation of every configured
// protection the decision engine evaluates. A RuleSet is built once per
// invocation by the configuration loader and is immutable afterwards.
package rules

import (
	"fmt"

	"github.com/armatrix/toolgate/internal/pattern"
)

// Action is what a matching tool-usage rule does.
type Action int

const (
	// Block rejects the request when the pattern matches.
	Block Action = iota
	// Allow permits the request when the pattern matches, short-circuiting
	// all later rules. A non-matching Allow rule rejects the request: it
	// defines a whitelist.
	Allow
)

// String returns the action name as used in configuration files.
func (a Action) String() string {
	if a == Allow {
		return "allow"
	}
	return "block"
}

// MatchMode selects full or word-prefix matching for command patterns.
type MatchMode int

const (
	Full MatchMode = iota
	Prefix
)

// String returns the mode name as used in configuration files.
func (m MatchMode) String() string {
	if m == Prefix {
		return "prefix"
	}
	return "full"
}

// RuleSet holds all configured protections.
type RuleSet struct {
	// PreventRootAdditions blocks creation of new files directly under the
	// protected root. Existing files may still be overwritten.
	PreventRootAdditions bool

	// UneditableFiles are glob patterns for files that may never be
	// modified, whether or not they exist.
	UneditableFiles []string

	// PreventAdditions are glob patterns under which new files may not be
	// created. Overwriting an existing file at a matched path is allowed.
	PreventAdditions []string

	// PreventUpdateGitIgnored blocks read/create/modify operations on
	// git-ignored files. Listing tools are exempt.
	PreventUpdateGitIgnored bool

	// ToolUsageRules are evaluated last, in configured order.
	ToolUsageRules []ToolUsageRule
}

// ToolUsageRule is a closed sum type: every rule is either a
// [FilePatternRule] or a [CommandPatternRule], and the engine matches on the
// concrete type exhaustively. The unexported method seals the interface.
type ToolUsageRule interface {
	// AppliesTo reports whether the rule binds to the given tool name.
	AppliesTo(toolName string) bool

	toolUsageRule()
}

// FilePatternRule matches the resolved file path of a file-tool request.
type FilePatternRule struct {
	Tool    string // exact tool name, or "*" for every tool
	Pattern string
	Action  Action
	Message string // optional override for the block reason
}

func (FilePatternRule) toolUsageRule() {}

// AppliesTo implements [ToolUsageRule].
func (r FilePatternRule) AppliesTo(toolName string) bool {
	return r.Tool == "*" || r.Tool == toolName
}

// CommandPatternRule matches the command string of a shell-tool request.
// It is inert for any other tool, whatever its Tool field says.
type CommandPatternRule struct {
	Tool    string // the shell tool, or "*"
	Pattern string
	Mode    MatchMode
	Action  Action
	Message string // optional override for the block reason
}

func (CommandPatternRule) toolUsageRule() {}

// AppliesTo implements [ToolUsageRule].
func (r CommandPatternRule) AppliesTo(toolName string) bool {
	return r.Tool == "*" || r.Tool == toolName
}

// Validate compiles every configured pattern and returns the first failure.
// A RuleSet that does not validate must be rejected before any evaluation:
// a broken rule would otherwise fail open unnoticed.
func (rs *RuleSet) Validate() error {
	for _, p := range rs.UneditableFiles {
		if _, err := pattern.CompileFile(p); err != nil {
			return fmt.Errorf("uneditableFiles: %w", err)
		}
	}
	for _, p := range rs.PreventAdditions {
		if _, err := pattern.CompileFile(p); err != nil {
			return fmt.Errorf("preventAdditions: %w", err)
		}
	}
	for i, r := range rs.ToolUsageRules {
		switch rule := r.(type) {
		case FilePatternRule:
			if _, err := pattern.CompileFile(rule.Pattern); err != nil {
				return fmt.Errorf("toolUsageRules[%d]: %w", i, err)
			}
		case CommandPatternRule:
			if _, err := pattern.CompileCommand(rule.Pattern, pattern.Mode(rule.Mode)); err != nil {
				return fmt.Errorf("toolUsageRules[%d]: %w", i, err)
			}
		default:
			return fmt.Errorf("toolUsageRules[%d]: unknown rule type %T", i, r)
		}
	}
	return nil
}
