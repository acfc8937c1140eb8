package eval

import (
	"fmt"

	"github.com/shrimpsizemoose/kamrat/internal/models"
	"github.com/shrimpsizemoose/kamrat/internal/store"
)

// Validator runs the admissibility checks for a candidate evaluation. It only
// reads from the store; nothing is written until a submission is admitted and
// handed to the Recorder.
type Validator struct {
	store store.EntityStore
}

func NewValidator(s store.EntityStore) *Validator {
	return &Validator{store: s}
}

// Admitted is a submission that passed every check, with the referenced
// records resolved so the Recorder does not have to re-fetch them.
type Admitted struct {
	Submission models.Submission
	Form       *models.EvaluationForm
	Team       *models.Team
	Criteria   []models.FormCriterion
}

// Validate runs the checks in a fixed order and stops at the first failure.
// Each failure carries a distinct Reason so callers can branch on cause.
func (v *Validator) Validate(sub models.Submission) (*Admitted, error) {
	form, err := v.store.GetForm(sub.FormID)
	if err != nil {
		return nil, fmt.Errorf("form lookup: %w", err)
	}
	if form == nil {
		return nil, rejected(ReasonFormNotFound, "evaluation form %d not found", sub.FormID)
	}

	team, err := v.store.GetTeam(sub.TeamID)
	if err != nil {
		return nil, fmt.Errorf("team lookup: %w", err)
	}
	if team == nil {
		return nil, rejected(ReasonTeamNotFound, "team %d not found", sub.TeamID)
	}

	evaluator, err := v.store.GetUser(sub.EvaluatorID)
	if err != nil {
		return nil, fmt.Errorf("evaluator lookup: %w", err)
	}
	if evaluator == nil {
		return nil, rejected(ReasonEvaluatorNotFound, "evaluator %d not found", sub.EvaluatorID)
	}

	membership, err := v.store.GetMembership(sub.TeamID, sub.EvaluatorID)
	if err != nil {
		return nil, fmt.Errorf("evaluator membership lookup: %w", err)
	}
	if membership == nil {
		return nil, rejected(ReasonEvaluatorNotMember, "evaluator %d is not a member of team %d", sub.EvaluatorID, sub.TeamID)
	}

	evaluatee, err := v.store.GetUser(sub.EvaluateeID)
	if err != nil {
		return nil, fmt.Errorf("evaluatee lookup: %w", err)
	}
	if evaluatee == nil {
		return nil, rejected(ReasonEvaluateeNotFound, "evaluatee %d not found", sub.EvaluateeID)
	}

	membership, err = v.store.GetMembership(sub.TeamID, sub.EvaluateeID)
	if err != nil {
		return nil, fmt.Errorf("evaluatee membership lookup: %w", err)
	}
	if membership == nil {
		return nil, rejected(ReasonEvaluateeNotMember, "evaluatee %d is not a member of team %d", sub.EvaluateeID, sub.TeamID)
	}

	if sub.EvaluatorID == sub.EvaluateeID {
		return nil, rejected(ReasonSelfEvaluation, "user %d cannot evaluate themselves", sub.EvaluatorID)
	}

	existing, err := v.store.FindEvaluation(sub.FormID, sub.EvaluatorID, sub.EvaluateeID)
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}
	if existing != nil {
		return nil, rejected(ReasonDuplicateEvaluation,
			"evaluator %d already evaluated user %d for form %d", sub.EvaluatorID, sub.EvaluateeID, sub.FormID)
	}

	criteria, err := v.store.ListFormCriteria(sub.FormID)
	if err != nil {
		return nil, fmt.Errorf("criteria lookup: %w", err)
	}
	known := make(map[int64]bool, len(criteria))
	for _, c := range criteria {
		known[c.ID] = true
	}
	for _, score := range sub.Scores {
		if !known[score.CriterionID] {
			return nil, rejected(ReasonCriterionNotInForm,
				"criterion %d does not belong to form %d", score.CriterionID, sub.FormID)
		}
	}

	return &Admitted{
		Submission: sub,
		Form:       form,
		Team:       team,
		Criteria:   criteria,
	}, nil
}
