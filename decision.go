package toolgate

import "fmt"

// Verdict is the engine's final answer for one tool call.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictBlock
)

// String returns the verdict name.
func (v Verdict) String() string {
	if v == VerdictBlock {
		return "block"
	}
	return "allow"
}

// Decision is returned synchronously from Evaluate and never persisted.
// Reason is set only for a block, and always names the single rule that
// fired first, never an aggregate.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Verdict == VerdictAllow }

// Blocked reports whether the request was rejected.
func (d Decision) Blocked() bool { return d.Verdict == VerdictBlock }

func allowed() Decision { return Decision{Verdict: VerdictAllow} }

func blocked(reason string) Decision {
	return Decision{Verdict: VerdictBlock, Reason: reason}
}

// fileBlockReason is the fixed message shape for file-based blocks.
func fileBlockReason(tool, reason, path string) string {
	return fmt.Sprintf("Blocked %s operation: %s. File: %s", tool, reason, path)
}

// commandBlockReason is the fixed message shape for command-based blocks.
func commandBlockReason(tool, pattern string) string {
	return fmt.Sprintf("%s command blocked by validation rule: %s", tool, pattern)
}
