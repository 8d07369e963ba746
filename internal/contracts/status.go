package contracts

import "fmt"

// TaskStatus mirrors the Coordinator's task state machine. Transitions are
// driven exclusively by the contract; workers only ever observe them.
type TaskStatus uint8

const (
	StatusNone TaskStatus = iota
	StatusPendingGeneration
	StatusPendingValidation
	StatusCompleted
)

func (s TaskStatus) String() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusPendingGeneration:
		return "PendingGeneration"
	case StatusPendingValidation:
		return "PendingValidation"
	case StatusCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// ParseTaskStatus converts the raw on-chain uint8 into a TaskStatus. The
// contract only ever emits 0..=3, but we validate the range rather than
// trust it blindly.
func ParseTaskStatus(raw uint8) (TaskStatus, error) {
	if raw > uint8(StatusCompleted) {
		return 0, fmt.Errorf("invalid task status byte %d", raw)
	}
	return TaskStatus(raw), nil
}
