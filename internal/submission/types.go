package submission

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fyrsmithlabs/daybook/internal/diary"
)

// State is a step of one submission run.
type State string

const (
	StateIdle               State = "idle"
	StateValidating         State = "validating"
	StateAwaitingAd         State = "awaiting_ad"
	StateCreatingEntry      State = "creating_entry"
	StateRequestingAnalysis State = "requesting_analysis"
	StateSucceeded          State = "succeeded"
	StateFailed             State = "failed"
)

// FailureReason says where a failed run stopped.
type FailureReason string

const (
	ReasonNone          FailureReason = ""
	ReasonInvalid       FailureReason = "invalid"
	ReasonAdDismissed   FailureReason = "ad_dismissed"
	ReasonCreateError   FailureReason = "create_error"
	ReasonAnalysisError FailureReason = "analysis_error"
)

// ErrIllegalTransition is returned when a state change is not in the
// transition table.
var ErrIllegalTransition = errors.New("illegal submission transition")

// transitions is the allowed-transition table.
var transitions = map[State][]State{
	StateIdle:               {StateValidating},
	StateValidating:         {StateAwaitingAd, StateCreatingEntry, StateFailed},
	StateAwaitingAd:         {StateCreatingEntry, StateFailed},
	StateCreatingEntry:      {StateRequestingAnalysis, StateFailed},
	StateRequestingAnalysis: {StateSucceeded, StateFailed},
	StateFailed:             {StateIdle},
	StateSucceeded:          {StateIdle},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// Transition is published to observers on every state change.
type Transition struct {
	From   State
	To     State
	Reason FailureReason
}

// Draft is the user's unsubmitted entry.
type Draft struct {
	Title   string
	Body    string
	Mood    diary.Mood
	Weather diary.Weather
	// Date is an optional YYYY-MM-DD key carried over from date resolution.
	Date string
}

// Field names a draft field.
type Field string

const (
	FieldTitle   Field = "title"
	FieldBody    Field = "body"
	FieldMood    Field = "mood"
	FieldWeather Field = "weather"
)

// ViolationKind is the closed set of validation failures.
type ViolationKind string

const (
	TooShort         ViolationKind = "too_short"
	DisallowedScript ViolationKind = "disallowed_script"
	UnknownValue     ViolationKind = "unknown_value"
)

// Violation is one field-level validation failure.
type Violation struct {
	Field Field         `json:"field"`
	Kind  ViolationKind `json:"violation"`
}

func (v Violation) String() string {
	return string(v.Field) + ": " + string(v.Kind)
}

// ValidationResult is every violation found in a draft, in check order.
type ValidationResult []Violation

// Has reports whether the result contains field/kind.
func (r ValidationResult) Has(field Field, kind ViolationKind) bool {
	for _, v := range r {
		if v.Field == field && v.Kind == kind {
			return true
		}
	}
	return false
}

// Result is the terminal outcome of Submit.
type Result struct {
	State      State
	Reason     FailureReason
	Violations ValidationResult
	// EntryID is set once creation succeeded, including on analysis_error.
	EntryID int64
	// Message is the display text for a failure.
	Message string
	Err     error
	// Busy is set when Submit was ignored because a run was in progress.
	Busy bool
	// Cancelled is set when the caller's context ended the run.
	Cancelled bool
}

// Succeeded reports whether the run completed both writes.
func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

// Route is the navigation target for the result: the entry detail view
// after success, or after an analysis failure when the entry exists.
func (r Result) Route() string {
	if r.EntryID == 0 {
		return ""
	}
	if r.State == StateSucceeded || r.Reason == ReasonAnalysisError {
		return "/entries/" + strconv.FormatInt(r.EntryID, 10)
	}
	return ""
}
