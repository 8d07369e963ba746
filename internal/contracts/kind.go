package contracts

import "fmt"

// OracleKind is the closed set of roles a worker can register as with the
// Registry contract. A worker may hold both kinds, one, or neither.
type OracleKind uint8

const (
	KindGenerator OracleKind = iota
	KindValidator
)

// AllKinds lists every known kind, in on-chain enum order.
var AllKinds = []OracleKind{KindGenerator, KindValidator}

func (k OracleKind) String() string {
	switch k {
	case KindGenerator:
		return "generator"
	case KindValidator:
		return "validator"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseOracleKind parses a CLI/config string into an OracleKind.
func ParseOracleKind(s string) (OracleKind, error) {
	switch s {
	case "generator", "Generator", "gen":
		return KindGenerator, nil
	case "validator", "Validator", "val":
		return KindValidator, nil
	default:
		return 0, fmt.Errorf("unknown oracle kind %q", s)
	}
}
