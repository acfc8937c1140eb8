package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type EvaluationForm struct {
	ID          int64  `db:"id" json:"id"`
	ProjectID   int64  `db:"project_id" json:"project_id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	MaxScore    int    `db:"max_score" json:"max_score"`
}

type FormCriterion struct {
	ID         int64  `db:"id" json:"id"`
	FormID     int64  `db:"form_id" json:"form_id"`
	Text       string `db:"text" json:"text"`
	MaxPoints  int    `db:"max_points" json:"max_points"`
	OrderIndex int    `db:"order_index" json:"order_index"`
}

type CriterionInput struct {
	Text       string `json:"text" validate:"required"`
	MaxPoints  int    `json:"max_points" validate:"required,gt=0"`
	OrderIndex int    `json:"order_index" validate:"gte=0"`
}

type FormInput struct {
	ProjectID   int64            `json:"project_id" validate:"required"`
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	MaxScore    int              `json:"max_score" validate:"required,gt=0"`
	Criteria    []CriterionInput `json:"criteria" validate:"required,min=1,dive"`
}

type FormPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	MaxScore    *int    `json:"max_score"`
}

// Validate checks field constraints and the form invariant: criterion point
// caps must sum to the declared max_score.
func (f *FormInput) Validate() error {
	validate := validator.New()
	if err := validate.Struct(f); err != nil {
		return err
	}

	total := 0
	for _, c := range f.Criteria {
		total += c.MaxPoints
	}
	if total != f.MaxScore {
		return fmt.Errorf("sum of criterion max_points (%d) should equal form max_score (%d)", total, f.MaxScore)
	}
	return nil
}
