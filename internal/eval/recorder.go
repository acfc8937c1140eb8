package eval

import (
	"errors"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/kamrat/internal/models"
	"github.com/shrimpsizemoose/kamrat/internal/store"
)

// Recorder persists admitted evaluations. The store is not assumed to offer
// multi-row transactions, so a failed score-entry write surfaces as a
// PartialWriteError with the count actually stored.
type Recorder struct {
	store store.EntityStore
}

func NewRecorder(s store.EntityStore) *Recorder {
	return &Recorder{store: s}
}

// Record persists the evaluation row, then each of its score entries. The
// store-level unique constraint on (form, evaluator, evaluatee) backs up the
// Validator's duplicate check, closing the validate-then-write race.
func (r *Recorder) Record(adm *Admitted) (*models.Evaluation, []models.ScoreEntry, error) {
	sub := adm.Submission
	total := sub.TotalScore
	evaluation := &models.Evaluation{
		FormID:      sub.FormID,
		EvaluatorID: sub.EvaluatorID,
		EvaluateeID: sub.EvaluateeID,
		TeamID:      sub.TeamID,
		TotalScore:  &total,
		Comments:    sub.Comments,
		SubmittedAt: time.Now().UTC(),
	}

	if err := r.store.CreateEvaluation(evaluation); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, nil, rejected(ReasonDuplicateEvaluation,
				"evaluator %d already evaluated user %d for form %d", sub.EvaluatorID, sub.EvaluateeID, sub.FormID)
		}
		return nil, nil, fmt.Errorf("failed to store evaluation: %w", err)
	}

	entries, err := r.insertScores(evaluation.ID, sub.Scores)
	if err != nil {
		return evaluation, entries, err
	}
	return evaluation, entries, nil
}

// Update applies a partial update. An empty patch changes nothing. A non-nil
// score list replaces the stored set wholesale: prior entries are deleted
// before the new ones are inserted.
func (r *Recorder) Update(evaluationID int64, patch models.EvaluationPatch) (*models.Evaluation, []models.ScoreEntry, error) {
	evaluation, err := r.store.GetEvaluation(evaluationID)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluation lookup: %w", err)
	}
	if evaluation == nil {
		return nil, nil, rejected(ReasonEvaluationNotFound, "evaluation %d not found", evaluationID)
	}

	if patch.Scores != nil {
		criteria, err := r.store.ListFormCriteria(evaluation.FormID)
		if err != nil {
			return nil, nil, fmt.Errorf("criteria lookup: %w", err)
		}
		known := make(map[int64]bool, len(criteria))
		for _, c := range criteria {
			known[c.ID] = true
		}
		for _, score := range *patch.Scores {
			if !known[score.CriterionID] {
				return nil, nil, rejected(ReasonCriterionNotInForm,
					"criterion %d does not belong to form %d", score.CriterionID, evaluation.FormID)
			}
		}
	}

	if patch.TotalScore != nil || patch.Comments != nil {
		if err := r.store.UpdateEvaluation(evaluationID, patch.TotalScore, patch.Comments); err != nil {
			return nil, nil, fmt.Errorf("failed to update evaluation: %w", err)
		}
		if patch.TotalScore != nil {
			evaluation.TotalScore = patch.TotalScore
		}
		if patch.Comments != nil {
			evaluation.Comments = *patch.Comments
		}
	}

	if patch.Scores != nil {
		if err := r.store.DeleteScoreEntries(evaluationID); err != nil {
			return nil, nil, fmt.Errorf("failed to clear score entries: %w", err)
		}
		entries, err := r.insertScores(evaluationID, *patch.Scores)
		if err != nil {
			return evaluation, entries, err
		}
		return evaluation, entries, nil
	}

	entries, err := r.store.ListScoreEntries(evaluationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list score entries: %w", err)
	}
	return evaluation, entries, nil
}

// Delete removes the evaluation and its score entries. The child deletes are
// issued explicitly so no orphaned entries remain regardless of whether the
// store cascades.
func (r *Recorder) Delete(evaluationID int64) error {
	evaluation, err := r.store.GetEvaluation(evaluationID)
	if err != nil {
		return fmt.Errorf("evaluation lookup: %w", err)
	}
	if evaluation == nil {
		return rejected(ReasonEvaluationNotFound, "evaluation %d not found", evaluationID)
	}

	if err := r.store.DeleteScoreEntries(evaluationID); err != nil {
		return fmt.Errorf("failed to delete score entries: %w", err)
	}
	if _, err := r.store.DeleteEvaluation(evaluationID); err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	return nil
}

func (r *Recorder) insertScores(evaluationID int64, scores []models.SubmissionScore) ([]models.ScoreEntry, error) {
	entries := make([]models.ScoreEntry, 0, len(scores))
	for i, score := range scores {
		entry := models.ScoreEntry{
			EvaluationID: evaluationID,
			CriterionID:  score.CriterionID,
			Score:        score.Score,
		}
		if err := r.store.CreateScoreEntry(&entry); err != nil {
			return entries, &PartialWriteError{
				EvaluationID: evaluationID,
				Stored:       i,
				Total:        len(scores),
				Err:          err,
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
