package models

// Condition summarises the combined instance and game state.
type Condition string

const (
	// ConditionOffline means AWS returned no status record for the instance.
	ConditionOffline Condition = "offline"
	// ConditionOK means the instance is running and the game accepts connections.
	ConditionOK Condition = "ok"
	// ConditionDegraded means the instance is running but the game is not listening.
	ConditionDegraded Condition = "degraded"
	// ConditionNotRunning means the instance is in any power state other than running.
	ConditionNotRunning Condition = "not_running"
)

// StatusReport is the outcome of a status operation.
type StatusReport struct {
	InstanceID  string     `json:"instance_id"`
	Tag         string     `json:"tag"`
	PowerState  PowerState `json:"power_state,omitempty"`
	GameRunning *bool      `json:"game_running"`
	Condition   Condition  `json:"condition"`
	Message     string     `json:"message"`
}
