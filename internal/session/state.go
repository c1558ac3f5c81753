package session

import "fmt"

// State is the controller's position in the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRecording
	StatePaused
	StateStopping
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateStarting:  "starting",
	StateRecording: "recording",
	StatePaused:    "paused",
	StateStopping:  "stopping",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name for JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}

	return fmt.Errorf("unknown state %q", text)
}

// Active reports whether a recording is live, paused or not.
func (s State) Active() bool {
	return s == StateRecording || s == StatePaused
}

// Status is a point-in-time view of the controller.
type Status struct {
	State      State  `json:"state"`
	SessionID  string `json:"session_id,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	Elapsed    string `json:"elapsed"`
	Paused     bool   `json:"paused"`
}
