package types

import (
	"fmt"
	"strings"
	"time"
)

// MangleAtom represents a Mangle name constant (a bare identifier
// starting with "/", e.g. "/active"). An explicit type avoids ambiguity
// between plain strings and name constants when building facts by hand.
type MangleAtom string

// Fact is a single Datalog-style fact asserted into the Mangle fact
// store that backs the Quality Gate orchestrator (§4.14) and the
// pattern-confidence rule set (§4.12).
type Fact struct {
	Predicate string
	Args      []interface{}
}

// String renders the fact in Datalog syntax, e.g. `gate_passed(/lint, 1)`.
func (f Fact) String() string {
	args := make([]string, 0, len(f.Args))
	for _, arg := range f.Args {
		args = append(args, ExtractString(arg))
	}
	return fmt.Sprintf("%s(%s)", f.Predicate, strings.Join(args, ", "))
}

// ExtractString renders a fact argument as Datalog-ish text: atoms pass
// through, strings are quoted, everything else uses its natural format.
func ExtractString(arg interface{}) string {
	switch v := arg.(type) {
	case MangleAtom:
		return string(v)
	case string:
		if strings.HasPrefix(v, "/") {
			return v
		}
		return fmt.Sprintf("%q", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "/true"
		}
		return "/false"
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case nil:
		return "/null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
