// label.go formats readable synthetic names for a function's internal
// branch targets. The teacher's version ran a single global channel
// listener handing out a process-wide monotonic counter per label kind;
// that design assumes one compilation in flight at a time and cannot be
// reused here, since lowering runs one goroutine per function (§5) and a
// shared global counter would race across them. Branch numbering itself
// already comes from each function's private lower.State.NextBranch
// counter, so this file keeps only the teacher's naming convention -
// kind-prefixed, zero-padded - as a pure formatting helper for verbose
// logging of a function's control-flow shape before resolution strips
// labels from the output entirely.

package util

import "fmt"

// ---------------------
// ----- Constants -----
// ---------------------

// Label kinds, named after the control construct that introduced the
// branch target.
const (
	LabelWhileHead = iota
	LabelWhileEnd
	LabelIf
	LabelIfElse
	LabelIfEnd
	LabelIfElseEnd
	LabelSwitch
)

var labelPrefixes = [LabelSwitch + 1]string{
	"LWhileHead",
	"LWhileEnd",
	"LIf",
	"LIfElse",
	"LIfEnd",
	"LIfElseEnd",
	"LSwitch",
}

// ---------------------
// ----- Functions -----
// ---------------------

// Label formats a readable name for branch id idx of the given kind, for
// use in verbose diagnostics only - it never appears in resolved output.
func Label(kind int, idx uint32) string {
	if kind < 0 || kind > LabelSwitch {
		return fmt.Sprintf("LUNKNOWN_%03d", idx)
	}
	return fmt.Sprintf("%s_%03d", labelPrefixes[kind], idx)
}
