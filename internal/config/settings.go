// Package config loads guard settings from JSON or YAML files and converts
// them into the typed rule set the engine consumes. Loading fails closed:
// a file that cannot be parsed, or a rule that does not validate, rejects
// the whole configuration before any evaluation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/armatrix/toolgate/rules"
)

// Settings is the on-disk configuration document.
type Settings struct {
	PreventRootAdditions    *bool    `json:"preventRootAdditions,omitempty" yaml:"preventRootAdditions,omitempty" jsonschema:"description=Block creation of new files directly under the project root"`
	UneditableFiles         []string `json:"uneditableFiles,omitempty" yaml:"uneditableFiles,omitempty" jsonschema:"description=Glob patterns for files that may never be modified"`
	PreventAdditions        []string `json:"preventAdditions,omitempty" yaml:"preventAdditions,omitempty" jsonschema:"description=Glob patterns under which new files may not be created"`
	PreventUpdateGitIgnored *bool    `json:"preventUpdateGitIgnored,omitempty" yaml:"preventUpdateGitIgnored,omitempty" jsonschema:"description=Block read/create/modify operations on git-ignored files"`

	ToolUsageRules []ToolUsageRuleSetting `json:"toolUsageRules,omitempty" yaml:"toolUsageRules,omitempty" jsonschema:"description=Generic rules evaluated last in configured order"`

	StopHooks         []HookCommand     `json:"stopHooks,omitempty" yaml:"stopHooks,omitempty" jsonschema:"description=Shell commands run when a session stops"`
	NotificationHooks []HookCommand     `json:"notificationHooks,omitempty" yaml:"notificationHooks,omitempty" jsonschema:"description=Shell commands run on notifications"`
	Env               map[string]string `json:"env,omitempty" yaml:"env,omitempty" jsonschema:"description=Environment variables exported to hook commands"`

	QueuePath string `json:"queuePath,omitempty" yaml:"queuePath,omitempty" jsonschema:"description=SQLite database path for the prompt-prefix block queue"`
}

// ToolUsageRuleSetting is one configured tool-usage rule. Exactly one of
// filePattern/commandPattern must be set.
type ToolUsageRuleSetting struct {
	Tool           string `json:"tool" yaml:"tool" jsonschema:"required,description=Tool name the rule binds to, or * for every tool"`
	FilePattern    string `json:"filePattern,omitempty" yaml:"filePattern,omitempty" jsonschema:"description=Glob matched against the resolved file path"`
	CommandPattern string `json:"commandPattern,omitempty" yaml:"commandPattern,omitempty" jsonschema:"description=Glob matched against the shell command string"`
	MatchMode      string `json:"matchMode,omitempty" yaml:"matchMode,omitempty" jsonschema:"enum=full,enum=prefix,description=Command match mode (default full)"`
	Action         string `json:"action" yaml:"action" jsonschema:"required,enum=allow,enum=block"`
	Message        string `json:"message,omitempty" yaml:"message,omitempty" jsonschema:"description=Override for the block reason"`
}

// HookCommand is one lifecycle shell command.
type HookCommand struct {
	Command   string `json:"command" yaml:"command" jsonschema:"required,description=Shell command to run"`
	TimeoutMs int    `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty" jsonschema:"description=Per-command timeout in milliseconds (default 30000)"`
}

// Timeout returns the configured timeout, defaulting to 30s.
func (h HookCommand) Timeout() time.Duration {
	if h.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.TimeoutMs) * time.Millisecond
}

// DefaultPaths returns the standard settings search paths, user-level first
// so project-level files override it.
func DefaultPaths(projectDir string) []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".toolgate", "guard.json"))
	}
	if projectDir != "" {
		paths = append(paths,
			filepath.Join(projectDir, ".toolgate", "guard.json"),
			filepath.Join(projectDir, ".toolgate", "guard.yaml"),
			filepath.Join(projectDir, ".toolgate", "guard.yml"),
		)
	}
	return paths
}

// Load merges settings from the given paths, later paths overriding earlier
// ones. Missing files are skipped; unparseable files are an error.
func Load(paths ...string) (*Settings, error) {
	merged := &Settings{}
	for _, path := range paths {
		s, err := loadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		merge(merged, s)
	}
	return merged, nil
}

func loadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return &s, nil
}

func merge(dst, src *Settings) {
	if src.PreventRootAdditions != nil {
		dst.PreventRootAdditions = src.PreventRootAdditions
	}
	if src.PreventUpdateGitIgnored != nil {
		dst.PreventUpdateGitIgnored = src.PreventUpdateGitIgnored
	}
	if len(src.UneditableFiles) > 0 {
		dst.UneditableFiles = src.UneditableFiles
	}
	if len(src.PreventAdditions) > 0 {
		dst.PreventAdditions = src.PreventAdditions
	}
	if len(src.ToolUsageRules) > 0 {
		dst.ToolUsageRules = src.ToolUsageRules
	}
	if len(src.StopHooks) > 0 {
		dst.StopHooks = src.StopHooks
	}
	if len(src.NotificationHooks) > 0 {
		dst.NotificationHooks = src.NotificationHooks
	}
	if src.QueuePath != "" {
		dst.QueuePath = src.QueuePath
	}
	for k, v := range src.Env {
		if dst.Env == nil {
			dst.Env = make(map[string]string)
		}
		dst.Env[k] = v
	}
}

// RuleSet converts the settings into the engine's typed rule set and
// validates every pattern.
func (s *Settings) RuleSet() (*rules.RuleSet, error) {
	rs := &rules.RuleSet{
		UneditableFiles:  s.UneditableFiles,
		PreventAdditions: s.PreventAdditions,
	}
	if s.PreventRootAdditions != nil {
		rs.PreventRootAdditions = *s.PreventRootAdditions
	}
	if s.PreventUpdateGitIgnored != nil {
		rs.PreventUpdateGitIgnored = *s.PreventUpdateGitIgnored
	}

	for i, setting := range s.ToolUsageRules {
		rule, err := setting.toRule()
		if err != nil {
			return nil, fmt.Errorf("config: toolUsageRules[%d]: %w", i, err)
		}
		rs.ToolUsageRules = append(rs.ToolUsageRules, rule)
	}

	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return rs, nil
}

func (t ToolUsageRuleSetting) toRule() (rules.ToolUsageRule, error) {
	if t.Tool == "" {
		return nil, fmt.Errorf("tool is required")
	}

	var action rules.Action
	switch t.Action {
	case "allow":
		action = rules.Allow
	case "block":
		action = rules.Block
	default:
		return nil, fmt.Errorf("action must be %q or %q, got %q", "allow", "block", t.Action)
	}

	switch {
	case t.FilePattern != "" && t.CommandPattern != "":
		return nil, fmt.Errorf("filePattern and commandPattern are mutually exclusive")
	case t.CommandPattern != "":
		if t.Tool != "Bash" && t.Tool != "*" {
			return nil, fmt.Errorf("commandPattern rules only apply to the shell tool, got tool %q", t.Tool)
		}
		var mode rules.MatchMode
		switch t.MatchMode {
		case "", "full":
			mode = rules.Full
		case "prefix":
			mode = rules.Prefix
		default:
			return nil, fmt.Errorf("matchMode must be %q or %q, got %q", "full", "prefix", t.MatchMode)
		}
		return rules.CommandPatternRule{
			Tool:    t.Tool,
			Pattern: t.CommandPattern,
			Mode:    mode,
			Action:  action,
			Message: t.Message,
		}, nil
	case t.FilePattern != "":
		if t.MatchMode != "" {
			return nil, fmt.Errorf("matchMode only applies to commandPattern rules")
		}
		return rules.FilePatternRule{
			Tool:    t.Tool,
			Pattern: t.FilePattern,
			Action:  action,
			Message: t.Message,
		}, nil
	default:
		return nil, fmt.Errorf("one of filePattern or commandPattern is required")
	}
}
