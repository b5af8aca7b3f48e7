package scene

import "fmt"

// IssueKind classifies a non-fatal finding produced while loading or
// validating a scene.
type IssueKind int

const (
	IssueParseIncomplete IssueKind = iota // malformed or missing data, defaults used
	IssueDepthExceeded                    // nesting deeper than the loader allows
	IssueIndexOutOfRange                  // triangle referenced a missing vertex
	IssueDuplicateName                    // siblings share a name
	IssueInvalidMesh                      // mesh data breaks its invariants
	IssueRootMismatch                     // root node and defaultPrim disagree
)

func (k IssueKind) String() string {
	switch k {
	case IssueParseIncomplete:
		return "parse-incomplete"
	case IssueDepthExceeded:
		return "depth-exceeded"
	case IssueIndexOutOfRange:
		return "index-out-of-range"
	case IssueDuplicateName:
		return "duplicate-name"
	case IssueInvalidMesh:
		return "invalid-mesh"
	case IssueRootMismatch:
		return "root-mismatch"
	default:
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
}

// Issue is a non-fatal diagnostic. Loading continues past issues.
type Issue struct {
	Kind    IssueKind
	Path    string // prim path, if known
	Line    int    // 1-based source line, 0 if unknown
	Message string
}

func (i Issue) Error() string {
	loc := i.Path
	if i.Line > 0 {
		if loc != "" {
			loc = fmt.Sprintf("%s (line %d)", loc, i.Line)
		} else {
			loc = fmt.Sprintf("line %d", i.Line)
		}
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", i.Kind, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Kind, loc, i.Message)
}
