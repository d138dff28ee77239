// Package workflows enforces the legal transitions of an upload run.
package workflows

// StateMachine holds the allowed transitions between named states.
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewUploadStateMachine builds the machine for the upload pipeline. Error is
// terminal: a rejected upload is never resumed, it is re-submitted from idle.
func NewUploadStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"idle":       {"verifying"},
			"verifying":  {"encrypting", "error"},
			"encrypting": {"uploading", "error"},
			"uploading":  {"success", "error"},
			"success":    {},
			"error":      {},
		},
	}
}

// CanTransition checks if a state transition is allowed.
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next states for a given state.
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
