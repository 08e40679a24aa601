// Package toolgate is a deterministic policy-decision engine that sits
// between an AI coding agent and the filesystem/shell. It is consulted once
// per tool call, before the call runs, and answers synchronously with an
// allow/block verdict plus a human-readable justification.
//
// An [Engine] evaluates a [Request] against a [rules.RuleSet] in a fixed
// order: root-addition guard, uneditable-file patterns, addition-prevention
// patterns, git-ignore-aware protection, then generic tool-usage rules.
// The first blocking protection wins and is the only one reported.
//
//	rs := &rules.RuleSet{
//	    PreventRootAdditions: true,
//	    UneditableFiles:      []string{"package.json"},
//	}
//	eng, err := toolgate.New("/path/to/project", rs)
//	if err != nil {
//	    // a broken pattern rejects the whole configuration
//	}
//	d := eng.Evaluate(toolgate.Request{ToolName: "Edit", Input: input})
//	if d.Blocked() {
//	    fmt.Println(d.Reason)
//	}
//
// # Sub-packages
//
//   - [rules] holds the typed rule-set consumed by the engine.
//   - [gitignore] evaluates paths against git's real ignore semantics.
//   - [hook] defines the payload the host writes when dispatching a hook.
//
// The engine holds no state across invocations: the rule set and gitignore
// index are built fresh per [New], so there is no cache to invalidate and no
// shared mutable state to lock.
package toolgate
