package diag

import (
	"fmt"
	"strings"
)

// Severity orders diagnostics; anything at SevError or above fails a unit.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevInfo:    "INFO",
	SevWarning: "WARNING",
	SevError:   "ERROR",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// ParseSeverity accepts the names printed by String in any case, plus
// "warn".
func ParseSeverity(name string) (Severity, error) {
	switch n := strings.ToUpper(strings.TrimSpace(name)); n {
	case "WARN":
		return SevWarning, nil
	default:
		for i, s := range severityNames {
			if s == n {
				return Severity(i), nil //nolint:gosec // i < len(severityNames)
			}
		}
	}
	return SevInfo, fmt.Errorf("unknown severity %q (expected info|warning|error)", name)
}
