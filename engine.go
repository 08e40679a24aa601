package toolgate

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/armatrix/toolgate/gitignore"
	"github.com/armatrix/toolgate/internal/extract"
	"github.com/armatrix/toolgate/internal/fspath"
	"github.com/armatrix/toolgate/internal/pattern"
	"github.com/armatrix/toolgate/rules"
)

// Engine evaluates tool-call requests against a rule set. Build one per
// invocation with [New]; it is immutable afterwards and safe to share.
type Engine struct {
	root   string // canonicalized protected root
	rules  *rules.RuleSet
	index  *gitignore.Index
	logger *slog.Logger

	uneditable []*pattern.File
	additions  []*pattern.File
	usage      []usageRule
}

// usageRule is a tool-usage rule with its pattern compiled. Exactly one of
// file/command is set, mirroring the two shapes of rules.ToolUsageRule.
type usageRule struct {
	tool    string
	action  rules.Action
	message string
	raw     string
	file    *pattern.File
	command *pattern.Command
}

func (u usageRule) appliesTo(toolName string) bool {
	return u.tool == "*" || u.tool == toolName
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for block diagnostics and fail-open
// warnings. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an engine for the protected root. Every configured pattern is
// compiled here: a broken pattern rejects the whole configuration before any
// evaluation. When git-ignore protection is enabled, the .gitignore index is
// built by scanning the root.
func New(root string, rs *rules.RuleSet, opts ...Option) (*Engine, error) {
	canonRoot, err := fspath.Canonicalize(root)
	if err != nil {
		return nil, fmt.Errorf("toolgate: protected root: %w", err)
	}

	e := &Engine{
		root:   canonRoot,
		rules:  rs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, p := range rs.UneditableFiles {
		f, err := pattern.CompileFile(p)
		if err != nil {
			return nil, fmt.Errorf("toolgate: uneditableFiles: %w", err)
		}
		e.uneditable = append(e.uneditable, f)
	}
	for _, p := range rs.PreventAdditions {
		f, err := pattern.CompileFile(p)
		if err != nil {
			return nil, fmt.Errorf("toolgate: preventAdditions: %w", err)
		}
		e.additions = append(e.additions, f)
	}
	for i, r := range rs.ToolUsageRules {
		u, err := compileUsageRule(r)
		if err != nil {
			return nil, fmt.Errorf("toolgate: toolUsageRules[%d]: %w", i, err)
		}
		e.usage = append(e.usage, u)
	}

	if rs.PreventUpdateGitIgnored {
		index, err := gitignore.Build(canonRoot, gitignore.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("toolgate: gitignore index: %w", err)
		}
		e.index = index
	}

	return e, nil
}

func compileUsageRule(r rules.ToolUsageRule) (usageRule, error) {
	switch rule := r.(type) {
	case rules.FilePatternRule:
		f, err := pattern.CompileFile(rule.Pattern)
		if err != nil {
			return usageRule{}, err
		}
		return usageRule{
			tool:    rule.Tool,
			action:  rule.Action,
			message: rule.Message,
			raw:     rule.Pattern,
			file:    f,
		}, nil
	case rules.CommandPatternRule:
		mode := pattern.Full
		if rule.Mode == rules.Prefix {
			mode = pattern.Prefix
		}
		c, err := pattern.CompileCommand(rule.Pattern, mode)
		if err != nil {
			return usageRule{}, err
		}
		return usageRule{
			tool:    rule.Tool,
			action:  rule.Action,
			message: rule.Message,
			raw:     rule.Pattern,
			command: c,
		}, nil
	default:
		return usageRule{}, fmt.Errorf("unknown rule type %T", r)
	}
}

// Root returns the canonicalized protected root.
func (e *Engine) Root() string { return e.root }

// Evaluate runs every protection in the fixed order and returns the first
// block, or an allow when nothing matched. Repeated evaluations of the same
// request always return the same verdict and the same first-matching reason.
func (e *Engine) Evaluate(req Request) Decision {
	target := e.resolveTarget(req)

	if d, done := e.checkRootAddition(req, target); done {
		return d
	}
	if d, done := e.checkUneditable(req, target); done {
		return d
	}
	if d, done := e.checkAdditionPrevention(req, target); done {
		return d
	}
	if d, done := e.checkGitIgnored(req, target); done {
		return d
	}
	if d, done := e.checkToolUsage(req, target); done {
		return d
	}
	return allowed()
}

// resolveTarget extracts and canonicalizes the request's file path, if it has
// one. Resolution failure skips the file checks but aborts nothing else.
func (e *Engine) resolveTarget(req Request) *fspath.Resolved {
	raw, ok := extract.FilePath(req.ToolName, req.Input)
	if !ok {
		return nil
	}
	res, err := fspath.Resolve(raw, e.root)
	if err != nil {
		e.logger.Warn("path resolution failed, file checks skipped",
			"tool", req.ToolName, "path", raw, "error", err)
		return nil
	}
	return res
}

// checkRootAddition blocks creation of new files directly under the root.
// An existing file at that location may always be overwritten: the guard
// protects against creation, not modification.
func (e *Engine) checkRootAddition(req Request, target *fspath.Resolved) (Decision, bool) {
	if !e.rules.PreventRootAdditions || req.ToolName != ToolWrite || target == nil {
		return Decision{}, false
	}
	if target.Exists || filepath.Dir(target.Canonical) != e.root {
		return Decision{}, false
	}
	return e.blockFile(req.ToolName, "preventRootAdditions",
		"adding new files to the project root is not permitted", target.Canonical), true
}

// checkUneditable blocks modification of matched files unconditionally;
// existence is irrelevant.
func (e *Engine) checkUneditable(req Request, target *fspath.Resolved) (Decision, bool) {
	if !fileModifyTools[req.ToolName] || target == nil {
		return Decision{}, false
	}
	for _, f := range e.uneditable {
		if e.matchFile(f, target) {
			reason := fmt.Sprintf("file matches uneditable pattern %q", f.String())
			return e.blockFile(req.ToolName, f.String(), reason, target.Canonical), true
		}
	}
	return Decision{}, false
}

// checkAdditionPrevention blocks creating new files at matched paths.
// Overwriting an existing file at a matched path is allowed.
func (e *Engine) checkAdditionPrevention(req Request, target *fspath.Resolved) (Decision, bool) {
	if req.ToolName != ToolWrite || target == nil || target.Exists {
		return Decision{}, false
	}
	for _, f := range e.additions {
		if e.matchFile(f, target) {
			reason := fmt.Sprintf("new files may not be created under pattern %q", f.String())
			return e.blockFile(req.ToolName, f.String(), reason, target.Canonical), true
		}
	}
	return Decision{}, false
}

// checkGitIgnored blocks read/create/modify operations on git-ignored files.
func (e *Engine) checkGitIgnored(req Request, target *fspath.Resolved) (Decision, bool) {
	if !e.rules.PreventUpdateGitIgnored || e.index == nil || target == nil {
		return Decision{}, false
	}
	if !gitIgnoreCheckedTools[req.ToolName] {
		return Decision{}, false
	}
	ignored, line := e.index.Match(target.Canonical)
	if !ignored {
		return Decision{}, false
	}
	reason := fmt.Sprintf("file is git-ignored (pattern %q)", line)
	return e.blockFile(req.ToolName, line, reason, target.Canonical), true
}

// checkToolUsage evaluates the generic rules in configured order. A matching
// Block rule blocks; a matching Allow rule allows immediately, short-
// circuiting all later rules; a non-matching Allow rule blocks, because an
// Allow rule defines a whitelist once it is reached.
func (e *Engine) checkToolUsage(req Request, target *fspath.Resolved) (Decision, bool) {
	for _, u := range e.usage {
		if !u.appliesTo(req.ToolName) {
			continue
		}

		if u.command != nil {
			// command rules are inert for anything but the shell tool
			if req.ToolName != ToolBash {
				continue
			}
			cmd, ok := extract.Command(req.Input)
			if !ok {
				continue // extraction miss: rule skipped, not an error
			}
			matched := u.command.Match(cmd)
			if matched && u.action == rules.Allow {
				return allowed(), true
			}
			if matched && u.action == rules.Block {
				return e.blockCommand(req.ToolName, u, cmd), true
			}
			if !matched && u.action == rules.Allow {
				return e.blockCommand(req.ToolName, u, cmd), true
			}
			continue
		}

		if target == nil {
			continue
		}
		matched := e.matchFile(u.file, target)
		if matched && u.action == rules.Allow {
			return allowed(), true
		}
		if matched && u.action == rules.Block {
			reason := u.message
			if reason == "" {
				reason = fmt.Sprintf("path matches blocked pattern %q", u.raw)
			}
			return e.blockFile(req.ToolName, u.raw, reason, target.Canonical), true
		}
		if !matched && u.action == rules.Allow {
			reason := u.message
			if reason == "" {
				reason = fmt.Sprintf("path does not match allowed pattern %q", u.raw)
			}
			return e.blockFile(req.ToolName, u.raw, reason, target.Canonical), true
		}
	}
	return Decision{}, false
}

// matchFile tries the root-relative form first, then the canonical absolute
// form, so both "dist/**" and "/home/user/proj/dist/**" styles work.
func (e *Engine) matchFile(f *pattern.File, target *fspath.Resolved) bool {
	if target.Rel != "" && f.Match(target.Rel) {
		return true
	}
	return f.Match(filepath.ToSlash(target.Canonical))
}

func (e *Engine) blockFile(tool, rule, reason, path string) Decision {
	e.logger.Info("tool call blocked",
		"tool", tool, "path", path, "rule", rule)
	return blocked(fileBlockReason(tool, reason, path))
}

func (e *Engine) blockCommand(tool string, u usageRule, cmd string) Decision {
	e.logger.Info("tool call blocked",
		"tool", tool, "command", cmd, "rule", u.raw)
	if u.message != "" {
		return blocked(u.message)
	}
	return blocked(commandBlockReason(tool, u.raw))
}
