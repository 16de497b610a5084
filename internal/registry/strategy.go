package registry

import (
	"fmt"
	"strings"
)

// Strategy selects where the registration sequence executes.
type Strategy string

const (
	// Inline runs the sequence on the calling goroutine.
	Inline Strategy = "inline"
	// Offload runs the sequence on the job runner's workers while the
	// caller waits for the result.
	Offload Strategy = "offload"
)

// DefaultStrategy is bound to the route unless configured otherwise.
const DefaultStrategy = Inline

// ParseStrategy parses a case-insensitive strategy name. Empty selects
// DefaultStrategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultStrategy, nil
	case Inline:
		return Inline, nil
	case Offload:
		return Offload, nil
	default:
		return "", fmt.Errorf("unknown handler strategy %q (want %q or %q)", s, Inline, Offload)
	}
}

func (s Strategy) String() string {
	return string(s)
}
