package receipt

import (
	"encoding/json"
	"time"
)

// State is the orchestrator's current phase. Exactly one is active at a time.
type State interface {
	Name() string
	isState()
}

type (
	Idle                   struct{}
	WaitingForConfirmation struct{}
	CapturingScreen        struct{}
	Recognizing            struct{}
	Parsing                struct{}
	Cancelled              struct{}

	// Success carries the result awaiting user review
	Success struct {
		Result *Result
	}

	// Failed carries the reason the attempt stopped
	Failed struct {
		Kind    ErrorKind
		Message string
		Err     error
	}
)

func (Idle) Name() string                   { return "idle" }
func (WaitingForConfirmation) Name() string { return "waiting_for_confirmation" }
func (CapturingScreen) Name() string        { return "capturing_screen" }
func (Recognizing) Name() string            { return "recognizing" }
func (Parsing) Name() string                { return "parsing" }
func (Success) Name() string                { return "success" }
func (Failed) Name() string                 { return "failed" }
func (Cancelled) Name() string              { return "cancelled" }

func (Idle) isState()                   {}
func (WaitingForConfirmation) isState() {}
func (CapturingScreen) isState()        {}
func (Recognizing) isState()            {}
func (Parsing) isState()                {}
func (Success) isState()                {}
func (Failed) isState()                 {}
func (Cancelled) isState()              {}

// acceptsTrigger reports whether a new attempt may start from s
func acceptsTrigger(s State) bool {
	switch s.(type) {
	case Idle, Failed, Cancelled:
		return true
	}
	return false
}

func cancellable(s State) bool {
	switch s.(type) {
	case WaitingForConfirmation, CapturingScreen, Recognizing, Parsing:
		return true
	}
	return false
}

func terminal(s State) bool {
	switch s.(type) {
	case Success, Failed, Cancelled:
		return true
	}
	return false
}

// Snapshot is a read-only copy of everything observers may see
type Snapshot struct {
	AttemptID   string
	State       State
	Progress    float64 // 0-1, never decreases within an attempt
	Phase       string
	RetryCount  int
	RetryStatus string
	UpdatedAt   time.Time
}

type snapshotJSON struct {
	AttemptID   string    `json:"attempt_id,omitempty"`
	State       string    `json:"state"`
	Progress    float64   `json:"progress"`
	Phase       string    `json:"phase"`
	RetryCount  int       `json:"retry_count"`
	RetryStatus string    `json:"retry_status,omitempty"`
	Result      *Result   `json:"result,omitempty"`
	Error       *apiError `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// MarshalJSON flattens the state into a name plus its payload
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		AttemptID:   s.AttemptID,
		State:       Idle{}.Name(),
		Progress:    s.Progress,
		Phase:       s.Phase,
		RetryCount:  s.RetryCount,
		RetryStatus: s.RetryStatus,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.State != nil {
		out.State = s.State.Name()
	}
	switch st := s.State.(type) {
	case Success:
		out.Result = st.Result
	case Failed:
		out.Error = &apiError{Kind: st.Kind.String(), Message: st.Message}
	}
	return json.Marshal(out)
}
