package models

import "fmt"

// Check is the tri-state selection value of a node.
type Check int

const (
	// Unchecked means the node and every descendant are excluded.
	Unchecked Check = iota
	// Checked means the node and every descendant are included.
	Checked
	// Partial means a directory has a mix of included and excluded descendants.
	Partial
)

// String returns the canonical name used in selection files.
func (c Check) String() string {
	switch c {
	case Unchecked:
		return "Unchecked"
	case Checked:
		return "Checked"
	case Partial:
		return "Partial"
	default:
		return fmt.Sprintf("Check(%d)", int(c))
	}
}

// ParseCheck converts a canonical name back into a Check.
func ParseCheck(s string) (Check, error) {
	switch s {
	case "Unchecked":
		return Unchecked, nil
	case "Checked":
		return Checked, nil
	case "Partial":
		return Partial, nil
	default:
		return Unchecked, fmt.Errorf("unknown selection state %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler so Check serializes as its name.
func (c Check) MarshalText() ([]byte, error) {
	switch c {
	case Unchecked, Checked, Partial:
		return []byte(c.String()), nil
	default:
		return nil, fmt.Errorf("invalid selection state %d", int(c))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Check) UnmarshalText(text []byte) error {
	parsed, err := ParseCheck(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
