package lifecycle

import (
	stderr "errors"
	"fmt"
	"strings"
)

// Policy tells the coordinator when to reconfigure an inherited runtime.
type Policy string

const (
	Never      Policy = "never"
	BeforeEach Policy = "before_each"
	AfterEach  Policy = "after_each"
)

var ErrUnknownPolicy = stderr.New("unknown reconfiguration policy")

// ParsePolicy accepts the canonical names as well as the spellings found in
// annotations and environment variables (BEFORE_EACH, beforeEach,
// before-each). An empty value means Never.
func ParsePolicy(value string) (Policy, error) {
	switch normalize(value) {
	case "", "never", "none":
		return Never, nil
	case "beforeeach":
		return BeforeEach, nil
	case "aftereach":
		return AfterEach, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, value)
	}
}

func (p Policy) Valid() bool {
	switch p {
	case Never, BeforeEach, AfterEach:
		return true
	default:
		return false
	}
}

func (p Policy) String() string {
	return string(p)
}

func normalize(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch r {
		case '_', '-', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
