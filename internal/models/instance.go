package models

// PowerState is the power state of an EC2 instance as reported by AWS.
type PowerState string

const (
	PowerStatePending    PowerState = "pending"
	PowerStateRunning    PowerState = "running"
	PowerStateStopping   PowerState = "stopping"
	PowerStateStopped    PowerState = "stopped"
	PowerStateTerminated PowerState = "terminated"
	PowerStateUnknown    PowerState = "unknown"
)

// ParsePowerState converts an EC2 instance state name into a PowerState.
func ParsePowerState(name string) PowerState {
	switch name {
	case "pending":
		return PowerStatePending
	case "running":
		return PowerStateRunning
	// shutting-down is still on its way down; terminated is only reported once EC2 says so
	case "stopping", "shutting-down":
		return PowerStateStopping
	case "stopped":
		return PowerStateStopped
	case "terminated":
		return PowerStateTerminated
	default:
		return PowerStateUnknown
	}
}

// InstanceRef identifies the single EC2 instance hosting the game server.
type InstanceRef struct {
	InstanceID string     `json:"instance_id"`
	State      PowerState `json:"state"`
}

// InstanceStatus is one status record returned by DescribeInstanceStatus.
type InstanceStatus struct {
	InstanceID string     `json:"instance_id"`
	State      PowerState `json:"state"`
}

// GameServerEndpoint describes where the game process listens.
type GameServerEndpoint struct {
	Host         string
	StatusPort   int
	ControlPort  int
	StopUsername string
	StopPassword string
}
