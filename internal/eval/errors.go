package eval

import (
	"errors"
	"fmt"
)

// Reason identifies the admissibility invariant a submission violated.
type Reason string

const (
	ReasonFormNotFound          Reason = "FORM_NOT_FOUND"
	ReasonTeamNotFound          Reason = "TEAM_NOT_FOUND"
	ReasonEvaluatorNotFound     Reason = "EVALUATOR_NOT_FOUND"
	ReasonEvaluatorNotMember    Reason = "EVALUATOR_NOT_TEAM_MEMBER"
	ReasonEvaluateeNotFound     Reason = "EVALUATEE_NOT_FOUND"
	ReasonEvaluateeNotMember    Reason = "EVALUATEE_NOT_TEAM_MEMBER"
	ReasonSelfEvaluation        Reason = "SELF_EVALUATION"
	ReasonDuplicateEvaluation   Reason = "DUPLICATE_EVALUATION"
	ReasonCriterionNotInForm    Reason = "CRITERION_NOT_IN_FORM"
	ReasonEvaluationNotFound    Reason = "EVALUATION_NOT_FOUND"
)

// notFoundReasons map to a missing referenced entity rather than a state
// violation. Handlers use this split for status codes.
var notFoundReasons = map[Reason]bool{
	ReasonFormNotFound:       true,
	ReasonTeamNotFound:       true,
	ReasonEvaluatorNotFound:  true,
	ReasonEvaluateeNotFound:  true,
	ReasonEvaluationNotFound: true,
}

type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func rejected(reason Reason, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the violation reason from err, or "" if err carries none.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// IsNotFound reports whether err names an absent referenced entity.
func IsNotFound(err error) bool {
	return notFoundReasons[ReasonOf(err)]
}

// PartialWriteError reports that an evaluation row was stored but not every
// score entry made it. Callers may re-issue the missing entries.
type PartialWriteError struct {
	EvaluationID int64
	Stored       int
	Total        int
	Err          error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("stored %d of %d score entries for evaluation %d: %v",
		e.Stored, e.Total, e.EvaluationID, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
