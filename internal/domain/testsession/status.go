package testsession

type Status string

const (
	StatusSetup     Status = "setup"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// transitions is the session state machine:
// setup → active ⇄ paused → completed, with active/paused → abandoned.
var transitions = map[Status][]Status{
	StatusSetup:  {StatusActive, StatusAbandoned},
	StatusActive: {StatusPaused, StatusCompleted, StatusAbandoned},
	StatusPaused: {StatusActive, StatusCompleted, StatusAbandoned},
}

func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Open reports whether the session still counts against the one-at-a-time limit.
func (s Status) Open() bool {
	return s == StatusActive || s == StatusPaused
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

func (s Status) Valid() bool {
	switch s {
	case StatusSetup, StatusActive, StatusPaused, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}
