package commission

import "fmt"

// ConfigurationError means profile, tier, or organization data is invalid or
// missing in a way that prevents a correct calculation. Never retryable and
// never silently defaulted to a zero commission.
type ConfigurationError struct {
	TrainerID string
	Profile   string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	msg := "commission configuration error"
	if e.TrainerID != "" {
		msg += fmt.Sprintf(" for trainer %s", e.TrainerID)
	}
	if e.Profile != "" {
		msg += fmt.Sprintf(" (profile %q)", e.Profile)
	}
	return msg + ": " + e.Reason
}

// NoProfileAssignedError means the trainer has no active commission profile.
// Batch callers catch this per trainer and keep going.
type NoProfileAssignedError struct {
	TrainerID string
}

func (e *NoProfileAssignedError) Error() string {
	return fmt.Sprintf("trainer %s has no commission profile assigned", e.TrainerID)
}
