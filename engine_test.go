package toolgate_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	toolgate "github.com/armatrix/toolgate"
	"github.com/armatrix/toolgate/rules"
)

func newEngine(t *testing.T, root string, rs *rules.RuleSet) *toolgate.Engine {
	t.Helper()
	eng, err := toolgate.New(root, rs)
	require.NoError(t, err)
	return eng
}

func fileReq(tool, path string) toolgate.Request {
	input, _ := json.Marshal(map[string]string{"file_path": path})
	return toolgate.Request{ToolName: tool, Input: input}
}

func pathReq(tool, path string) toolgate.Request {
	input, _ := json.Marshal(map[string]string{"path": path})
	return toolgate.Request{ToolName: tool, Input: input}
}

func bashReq(command string) toolgate.Request {
	input, _ := json.Marshal(map[string]string{"command": command})
	return toolgate.Request{ToolName: toolgate.ToolBash, Input: input}
}

func writeFile(t *testing.T, root, name string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("content"), 0o644))
	return p
}

func TestRootAdditionGuard(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "existing.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	eng := newEngine(t, root, &rules.RuleSet{PreventRootAdditions: true})

	t.Run("new file at root blocked", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolWrite, "new.txt"))
		require.True(t, d.Blocked())
		assert.Contains(t, d.Reason, "Blocked Write operation:")
		assert.Contains(t, d.Reason, "new.txt")
	})

	t.Run("existing file at root may be overwritten", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolWrite, "existing.txt"))
		assert.True(t, d.Allowed())
	})

	t.Run("new file in subdirectory allowed", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolWrite, "sub/new.txt"))
		assert.True(t, d.Allowed())
	})

	t.Run("edit tool unaffected", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolEdit, "new.txt"))
		assert.True(t, d.Allowed())
	})
}

func TestRootAdditionGuard_Idempotent(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{PreventRootAdditions: true})

	req := fileReq(toolgate.ToolWrite, "report.md")
	first := eng.Evaluate(req)
	second := eng.Evaluate(req)
	require.True(t, first.Blocked())
	assert.Equal(t, first.Reason, second.Reason, "same request, same message")

	// once the file exists (created some other way), the request is allowed
	writeFile(t, root, "report.md")
	assert.True(t, eng.Evaluate(req).Allowed())
}

func TestUneditableFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json")
	eng := newEngine(t, root, &rules.RuleSet{
		UneditableFiles: []string{"package.json"},
	})

	t.Run("edit at root blocked", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolEdit, "package.json"))
		require.True(t, d.Blocked())
		assert.Contains(t, d.Reason, "package.json")
	})

	t.Run("edit at any depth blocked", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolEdit, "pkg/deep/package.json"))
		require.True(t, d.Blocked())
		assert.Contains(t, d.Reason, "package.json")
	})

	t.Run("write blocked even when file does not exist", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolWrite, "sub/package.json"))
		assert.True(t, d.Blocked(), "the guard is absolute, existence is irrelevant")
	})

	t.Run("read is not a modification", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolRead, "package.json"))
		assert.True(t, d.Allowed())
	})

	t.Run("other files unaffected", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolEdit, "main.go"))
		assert.True(t, d.Allowed())
	})
}

func TestAdditionPrevention(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		PreventAdditions: []string{"dist/**"},
	})

	req := fileReq(toolgate.ToolWrite, "dist/output.js")

	d := eng.Evaluate(req)
	require.True(t, d.Blocked(), "creating a new file under dist/ is blocked")
	assert.Contains(t, d.Reason, "dist/**")

	// the identical request succeeds once the file exists
	writeFile(t, root, "dist/output.js")
	assert.True(t, eng.Evaluate(req).Allowed())

	// edits never hit the addition guard
	assert.True(t, eng.Evaluate(fileReq(toolgate.ToolEdit, "dist/other.js")).Allowed())
}

func TestGitIgnoreProtection(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules/\n"), 0o644))
	writeFile(t, root, "node_modules/pkg/index.js")
	writeFile(t, root, "src/index.js")
	eng := newEngine(t, root, &rules.RuleSet{PreventUpdateGitIgnored: true})

	t.Run("read of ignored file blocked", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolRead, "node_modules/pkg/index.js"))
		require.True(t, d.Blocked())
		assert.Contains(t, d.Reason, "git-ignored")
	})

	t.Run("write into ignored directory blocked", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolWrite, "node_modules/new.js"))
		assert.True(t, d.Blocked())
	})

	t.Run("listing tool exempt", func(t *testing.T) {
		d := eng.Evaluate(pathReq(toolgate.ToolGlob, "node_modules/pkg"))
		assert.True(t, d.Allowed())

		d = eng.Evaluate(pathReq(toolgate.ToolLS, "node_modules"))
		assert.True(t, d.Allowed())
	})

	t.Run("tracked file unaffected", func(t *testing.T) {
		d := eng.Evaluate(fileReq(toolgate.ToolRead, "src/index.js"))
		assert.True(t, d.Allowed())
	})
}

func TestToolUsageRules_CommandBlock(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		ToolUsageRules: []rules.ToolUsageRule{
			rules.CommandPatternRule{
				Tool:    toolgate.ToolBash,
				Pattern: "git push --force*",
				Mode:    rules.Prefix,
				Action:  rules.Block,
			},
		},
	})

	d := eng.Evaluate(bashReq("git push --force origin main"))
	require.True(t, d.Blocked())
	assert.Equal(t, "Bash command blocked by validation rule: git push --force*", d.Reason)

	assert.True(t, eng.Evaluate(bashReq("git push origin main")).Allowed())
	assert.True(t, eng.Evaluate(bashReq("echo git push --force")).Allowed(),
		"prefix matching starts at the first word")
}

func TestToolUsageRules_CommandAllowWhitelist(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		ToolUsageRules: []rules.ToolUsageRule{
			rules.CommandPatternRule{
				Tool:    toolgate.ToolBash,
				Pattern: "npm run *",
				Mode:    rules.Prefix,
				Action:  rules.Allow,
			},
		},
	})

	assert.True(t, eng.Evaluate(bashReq("npm run build")).Allowed())

	d := eng.Evaluate(bashReq("npm install left-pad"))
	require.True(t, d.Blocked(), "an Allow rule rejects anything it does not match")
	assert.Contains(t, d.Reason, "npm run *")
}

func TestToolUsageRules_AllowShortCircuitsLaterBlock(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		ToolUsageRules: []rules.ToolUsageRule{
			rules.CommandPatternRule{
				Tool:    toolgate.ToolBash,
				Pattern: "git *",
				Mode:    rules.Prefix,
				Action:  rules.Allow,
			},
			rules.CommandPatternRule{
				Tool:    toolgate.ToolBash,
				Pattern: "git push*",
				Mode:    rules.Prefix,
				Action:  rules.Block,
			},
		},
	})

	// first rule wins: the earlier Allow short-circuits the later Block
	assert.True(t, eng.Evaluate(bashReq("git push origin main")).Allowed())
}

func TestToolUsageRules_BlockBeforeAllow(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		ToolUsageRules: []rules.ToolUsageRule{
			rules.CommandPatternRule{
				Tool:    toolgate.ToolBash,
				Pattern: "git push*",
				Mode:    rules.Prefix,
				Action:  rules.Block,
			},
			rules.CommandPatternRule{
				Tool:    toolgate.ToolBash,
				Pattern: "git *",
				Mode:    rules.Prefix,
				Action:  rules.Allow,
			},
		},
	})

	assert.True(t, eng.Evaluate(bashReq("git push origin main")).Blocked())
	assert.True(t, eng.Evaluate(bashReq("git status")).Allowed())
}

func TestToolUsageRules_CommandRuleInertForFileTools(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		ToolUsageRules: []rules.ToolUsageRule{
			rules.CommandPatternRule{
				Tool:    "*",
				Pattern: "*",
				Action:  rules.Block,
			},
		},
	})

	assert.True(t, eng.Evaluate(fileReq(toolgate.ToolEdit, "main.go")).Allowed(),
		"a command rule is silently inert for non-shell tools")
	assert.True(t, eng.Evaluate(bashReq("ls")).Blocked())
}

func TestToolUsageRules_EmptyCommandSkipsRule(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		ToolUsageRules: []rules.ToolUsageRule{
			rules.CommandPatternRule{
				Tool:    toolgate.ToolBash,
				Pattern: "*",
				Action:  rules.Block,
			},
		},
	})

	input, _ := json.Marshal(map[string]string{"command": "   "})
	d := eng.Evaluate(toolgate.Request{ToolName: toolgate.ToolBash, Input: input})
	assert.True(t, d.Allowed(), "whitespace-only command skips the rule")
}

func TestToolUsageRules_FilePattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "secrets/key.pem")
	eng := newEngine(t, root, &rules.RuleSet{
		ToolUsageRules: []rules.ToolUsageRule{
			rules.FilePatternRule{
				Tool:    "*",
				Pattern: "secrets/**",
				Action:  rules.Block,
				Message: "secrets are off limits",
			},
		},
	})

	d := eng.Evaluate(fileReq(toolgate.ToolRead, "secrets/key.pem"))
	require.True(t, d.Blocked())
	assert.Contains(t, d.Reason, "secrets are off limits")

	assert.True(t, eng.Evaluate(fileReq(toolgate.ToolRead, "main.go")).Allowed())
	assert.True(t, eng.Evaluate(bashReq("ls")).Allowed(),
		"a file rule without a path to match falls through")
}

func TestEvaluationOrder_FirstBlockWins(t *testing.T) {
	root := t.TempDir()
	// package.json is both uneditable and under an addition-prevention
	// pattern; the uneditable check runs first and is the one reported.
	eng := newEngine(t, root, &rules.RuleSet{
		UneditableFiles:  []string{"package.json"},
		PreventAdditions: []string{"package.json"},
	})

	d := eng.Evaluate(fileReq(toolgate.ToolWrite, "package.json"))
	require.True(t, d.Blocked())
	assert.Contains(t, d.Reason, "uneditable")
}

func TestEvaluate_Deterministic(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		UneditableFiles: []string{"*.lock"},
		ToolUsageRules: []rules.ToolUsageRule{
			rules.CommandPatternRule{Tool: toolgate.ToolBash, Pattern: "rm *", Mode: rules.Prefix, Action: rules.Block},
		},
	})

	req := fileReq(toolgate.ToolEdit, "yarn.lock")
	want := eng.Evaluate(req)
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, eng.Evaluate(req))
	}
}

func TestEvaluate_UnresolvablePathSkipsFileChecks(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{
		PreventRootAdditions: true,
		UneditableFiles:      []string{"*"},
	})

	// NUL bytes cannot appear in a path; resolution fails and the file
	// checks are skipped rather than aborting the evaluation.
	d := eng.Evaluate(fileReq(toolgate.ToolWrite, "bad\x00name"))
	assert.True(t, d.Allowed())
}

func TestNew_BrokenPatternRejected(t *testing.T) {
	root := t.TempDir()

	_, err := toolgate.New(root, &rules.RuleSet{UneditableFiles: []string{"[bad"}})
	require.ErrorIs(t, err, toolgate.ErrInvalidPattern)

	_, err = toolgate.New(root, &rules.RuleSet{ToolUsageRules: []rules.ToolUsageRule{
		rules.CommandPatternRule{Tool: toolgate.ToolBash, Pattern: "[bad", Action: rules.Block},
	}})
	require.ErrorIs(t, err, toolgate.ErrInvalidPattern)
}

func TestNew_MissingRootRejected(t *testing.T) {
	_, err := toolgate.New(filepath.Join(t.TempDir(), "nope"), &rules.RuleSet{})
	require.ErrorIs(t, err, toolgate.ErrPathResolution)
}

func TestBlockMessageShape(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root, &rules.RuleSet{UneditableFiles: []string{"go.sum"}})

	d := eng.Evaluate(fileReq(toolgate.ToolEdit, "go.sum"))
	require.True(t, d.Blocked())
	want := fmt.Sprintf("Blocked Edit operation: file matches uneditable pattern %q. File: ", "go.sum")
	assert.Contains(t, d.Reason, want)
}

func TestAbsolutePathTarget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json")
	eng := newEngine(t, root, &rules.RuleSet{UneditableFiles: []string{"package.json"}})

	abs := filepath.Join(root, "package.json")
	d := eng.Evaluate(fileReq(toolgate.ToolEdit, abs))
	assert.True(t, d.Blocked(), "absolute paths resolve to the same target")
}
