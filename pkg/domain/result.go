package domain

// Action names a step result can carry. Tool-originated actions mirror the
// tool catalog; "respond" is the plain conversational reply.
const (
	ActionRespond           = "respond"
	ActionPlay              = "play"
	ActionPause             = "pause"
	ActionStop              = "stop"
	ActionRestart           = "restart"
	ActionShowContent       = "show_content"
	ActionTranslateContent  = "translate_content"
	ActionRegenerateContent = "regenerate_content"
	ActionJumpToTime        = "jump_to_time"
	ActionShowOverlayList   = "show_overlay_list"
	ActionNavigateToNode    = "navigate_to_node"
	ActionReturnToSection   = "return_to_section"
	ActionEnd               = "end"
)

// StepResult is the outcome of executing one step of the flow.
type StepResult struct {
	Action  string `json:"action"`
	Message string `json:"message"`

	// NextNodeID proposes the node to advance to, when resolved.
	NextNodeID string `json:"next_node,omitempty"`

	// WaitingForResponse signals that the step paused for user input.
	WaitingForResponse bool `json:"waiting_for_response,omitempty"`

	// PurposeCompleted reports the purpose classification of a prompt step.
	PurposeCompleted bool `json:"purpose_completed,omitempty"`

	// Fields carries action-specific payload (time_seconds, content_id, ...).
	Fields map[string]any `json:"fields,omitempty"`
}

// Field returns an action-specific payload value, or nil.
func (r *StepResult) Field(key string) any {
	if r == nil || r.Fields == nil {
		return nil
	}
	return r.Fields[key]
}

// SetField stores an action-specific payload value.
func (r *StepResult) SetField(key string, v any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = v
}
