package domain

// MotorType selects the consultation strategy used for context assembly.
type MotorType int

// Consultation strategies.
const (
	// MotorNewPlan is a first consultation building a new meal plan.
	MotorNewPlan MotorType = 1

	// MotorFollowUp is a check-in adjusting an existing plan.
	MotorFollowUp MotorType = 2

	// MotorSubstitution replaces a specific meal.
	MotorSubstitution MotorType = 3
)

// IsValid returns true if the motor type is recognised.
func (m MotorType) IsValid() bool {
	return m >= MotorNewPlan && m <= MotorSubstitution
}

// String returns a readable name for the strategy.
func (m MotorType) String() string {
	switch m {
	case MotorNewPlan:
		return "new_plan"
	case MotorFollowUp:
		return "follow_up"
	case MotorSubstitution:
		return "substitution"
	default:
		return "unknown"
	}
}

// Patient attribute keys used by context assembly.
const (
	PatientObjective     = "objective"
	PatientActivityLevel = "activity_level"
)

// ContextRequest asks for an assembled retrieval context.
type ContextRequest struct {
	// PatientData holds free-form patient attributes (objective, activity_level...).
	PatientData map[string]string `json:"patient_data"`

	// ConversationHistory is accepted for compatibility and not used.
	ConversationHistory []string `json:"conversation_history,omitempty"`

	// MotorType selects the sub-query strategy.
	MotorType MotorType `json:"motor_type"`

	// SpecificRequest is used by the substitution strategy.
	SpecificRequest string `json:"specific_request,omitempty"`
}

// Validate checks the motor type.
func (r ContextRequest) Validate() error {
	if !r.MotorType.IsValid() {
		return &ValidationError{Field: "motor_type", Reason: "must be 1, 2 or 3"}
	}
	return nil
}

// Patient returns the attribute stored under key, or "" when absent.
func (r ContextRequest) Patient(key string) string {
	if r.PatientData == nil {
		return ""
	}
	return r.PatientData[key]
}

// ContextResponse is the assembled context for one consultation.
type ContextResponse struct {
	// Context is the selected chunk texts joined by ContextSeparator.
	Context string `json:"context"`

	// Recommendations are truncated excerpts of recipe-like chunks.
	Recommendations []string `json:"recommendations"`

	// RelevantSources are the distinct sources of the selected chunks, sorted.
	RelevantSources []string `json:"relevant_sources"`

	// SubQueries are the queries issued, in order.
	SubQueries []string `json:"sub_queries,omitempty"`
}

// ContextSeparator joins the selected chunk texts.
const ContextSeparator = "\n\n---\n\n"
