package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Evaluation struct {
	ID          int64     `db:"id" json:"id"`
	FormID      int64     `db:"form_id" json:"form_id"`
	EvaluatorID int64     `db:"evaluator_id" json:"evaluator_id"`
	EvaluateeID int64     `db:"evaluatee_id" json:"evaluatee_id"`
	TeamID      int64     `db:"team_id" json:"team_id"`
	TotalScore  *int      `db:"total_score" json:"total_score,omitempty"`
	Comments    string    `db:"comments" json:"comments"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// ScoreEntry is owned by exactly one Evaluation and lives and dies with it.
type ScoreEntry struct {
	ID           int64 `db:"id" json:"id"`
	EvaluationID int64 `db:"evaluation_id" json:"evaluation_id"`
	CriterionID  int64 `db:"criterion_id" json:"criterion_id"`
	Score        int   `db:"score" json:"score"`
}

type SubmissionScore struct {
	CriterionID int64 `json:"criterion_id" validate:"required"`
	Score       int   `json:"score" validate:"gte=0"`
}

// Submission is a candidate evaluation as received from a caller, before any
// admissibility check has run.
type Submission struct {
	FormID      int64             `json:"form_id" validate:"required"`
	EvaluatorID int64             `json:"evaluator_id" validate:"required"`
	EvaluateeID int64             `json:"evaluatee_id" validate:"required"`
	TeamID      int64             `json:"team_id" validate:"required"`
	TotalScore  int               `json:"total_score" validate:"gte=0"`
	Comments    string            `json:"comments"`
	Scores      []SubmissionScore `json:"scores" validate:"dive"`
}

// EvaluationPatch is a partial update. A non-nil Scores replaces the whole
// stored score set, it is never merged.
type EvaluationPatch struct {
	TotalScore *int               `json:"total_score"`
	Comments   *string            `json:"comments"`
	Scores     *[]SubmissionScore `json:"scores"`
}

func (s *Submission) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

func (p *EvaluationPatch) Empty() bool {
	return p.TotalScore == nil && p.Comments == nil && p.Scores == nil
}
