package firmware

import "fmt"

type EventKind uint8

const (
	DistanceMeasured EventKind = iota
	ObstacleStop
	CommandExecuted
)

func (k EventKind) String() string {
	switch k {
	case DistanceMeasured:
		return "distance"
	case ObstacleStop:
		return "obstacle"
	case CommandExecuted:
		return "command"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

type Event struct {
	Kind       EventKind
	Code       byte
	DistanceCm uint32
}
