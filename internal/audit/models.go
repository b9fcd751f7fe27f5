package audit

import "time"

// Action names for lifecycle audit events. One per executed transition plus
// registry-level actions.
const (
	ActionApplicationCreated = "application_created"
	ActionTransitionExecuted = "transition_executed"
	ActionRepaymentOverdue   = "repayment_overdue"
)

// Event is emitted from the transition engine to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. This is operator-facing
// telemetry; the client-visible audit trail is the aggregate's timeline.
type Event struct {
	Timestamp     time.Time
	ApplicationID string
	Action        string
	Command       string
	Stage         string
	Detail        string
}
