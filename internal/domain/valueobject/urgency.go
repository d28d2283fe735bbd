package valueobject

import "fmt"

// MaintenanceUrgency is how soon a suggested maintenance action should happen.
type MaintenanceUrgency string

const (
	UrgencyImmediate  MaintenanceUrgency = "immediate"
	UrgencyWithin24h  MaintenanceUrgency = "within_24h"
	UrgencyWithinWeek MaintenanceUrgency = "within_week"
	UrgencyRoutine    MaintenanceUrgency = "routine"
)

func (u MaintenanceUrgency) Validate() error {
	switch u {
	case UrgencyImmediate, UrgencyWithin24h, UrgencyWithinWeek, UrgencyRoutine:
		return nil
	default:
		return fmt.Errorf("invalid maintenance urgency %q", string(u))
	}
}

func (u MaintenanceUrgency) String() string {
	return string(u)
}

// Rank is higher for more urgent values.
func (u MaintenanceUrgency) Rank() int {
	switch u {
	case UrgencyImmediate:
		return 4
	case UrgencyWithin24h:
		return 3
	case UrgencyWithinWeek:
		return 2
	case UrgencyRoutine:
		return 1
	default:
		return 0
	}
}
