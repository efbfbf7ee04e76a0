package provisioning

import (
	"fmt"
	"strings"
)

// ConflictPolicy decides what happens when a conflict-sensitive step finds
// its effect already present.
type ConflictPolicy string

const (
	// ConflictContinue reuses what exists.
	ConflictContinue ConflictPolicy = "continue"
	// ConflictAbort stops the run with ErrAborted.
	ConflictAbort ConflictPolicy = "abort"
	// ConflictRecreate removes the existing effect and applies again.
	ConflictRecreate ConflictPolicy = "recreate"
	// ConflictAsk is resolved by the caller into one of the other policies
	// before the run starts. The sequencer treats it like ConflictContinue.
	ConflictAsk ConflictPolicy = "ask"
)

// ConflictPolicies lists the accepted policy names.
var ConflictPolicies = []ConflictPolicy{ConflictContinue, ConflictAbort, ConflictRecreate, ConflictAsk}

// ParseConflictPolicy converts a flag or config value into a policy.
// An empty value yields ConflictContinue.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ConflictContinue, nil
	case ConflictContinue, ConflictAbort, ConflictRecreate, ConflictAsk:
		return p, nil
	default:
		return "", fmt.Errorf("invalid conflict policy %q (valid: continue, abort, recreate, ask)", s)
	}
}

func (p ConflictPolicy) String() string {
	return string(p)
}
