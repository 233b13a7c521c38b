package pipeline

// EventLevel indicates the severity of an event.
type EventLevel int

const (
	// LevelInfo is for milestones the requester should see.
	LevelInfo EventLevel = iota
	// LevelVerbose is for step-by-step detail.
	LevelVerbose
	// LevelWarning is for failures that did not stop the request.
	LevelWarning
	// LevelError is for failures that ended the request.
	LevelError
	// LevelSuccess is for a delivered file.
	LevelSuccess
)

func (l EventLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "info"
	}
}

// Event is a progress update for the requester. Err is set for warnings and
// errors.
type Event struct {
	Message string
	Level   EventLevel
	Err     error
}
