package policy

import "fmt"

// Level is an ordered escalation level. Higher values are more severe;
// comparison with < and > follows the escalation ladder.
type Level int

const (
	// LevelNormal means spending is comfortably within budget.
	LevelNormal Level = iota

	// LevelAlert means the alert threshold was crossed; operations
	// continue unchanged but the crossing is recorded and reported.
	LevelAlert

	// LevelReducedFrequency means the agent should slow its operational
	// cadence to stretch the remaining budget.
	LevelReducedFrequency

	// LevelEmergency means only essential operations may proceed.
	LevelEmergency

	// LevelShutdown means the budget is breached beyond tolerance; no
	// costed operation may proceed until the period resets.
	LevelShutdown
)

// Levels returns every level in ascending order of severity.
func Levels() []Level {
	return []Level{LevelNormal, LevelAlert, LevelReducedFrequency, LevelEmergency, LevelShutdown}
}

// String returns the wire form used in alert records and configuration.
func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelAlert:
		return "alert"
	case LevelReducedFrequency:
		return "reduced_frequency"
	case LevelEmergency:
		return "emergency"
	case LevelShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a configuration string into a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "normal":
		return LevelNormal, nil
	case "alert":
		return LevelAlert, nil
	case "reduced_frequency":
		return LevelReducedFrequency, nil
	case "emergency":
		return LevelEmergency, nil
	case "shutdown":
		return LevelShutdown, nil
	default:
		return LevelNormal, fmt.Errorf("%w: unknown level %q", ErrInvalidConfig, s)
	}
}
