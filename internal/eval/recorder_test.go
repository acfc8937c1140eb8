package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/kamrat/internal/models"
	"github.com/shrimpsizemoose/kamrat/internal/store"
)

func admitted() *Admitted {
	return &Admitted{
		Submission: validSubmission(),
		Form:       stubForm(),
		Team:       stubTeam(),
		Criteria:   stubCriteria(),
	}
}

func TestRecorder_Record(t *testing.T) {
	t.Run("stores the evaluation and every score entry", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("CreateEvaluation", mock.AnythingOfType("*models.Evaluation")).Run(func(args mock.Arguments) {
			args.Get(0).(*models.Evaluation).ID = 42
		}).Return(nil)
		ms.On("CreateScoreEntry", mock.AnythingOfType("*models.ScoreEntry")).Run(func(args mock.Arguments) {
			args.Get(0).(*models.ScoreEntry).ID = 1
		}).Return(nil)

		evaluation, entries, err := NewRecorder(ms).Record(admitted())

		require.NoError(t, err)
		assert.Equal(t, int64(42), evaluation.ID)
		require.NotNil(t, evaluation.TotalScore)
		assert.Equal(t, 85, *evaluation.TotalScore)
		assert.False(t, evaluation.SubmittedAt.IsZero())
		require.Len(t, entries, 2)
		assert.Equal(t, int64(42), entries[0].EvaluationID)
		ms.AssertExpectations(t)
	})

	t.Run("constraint violation maps to a duplicate rejection", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("CreateEvaluation", mock.Anything).Return(store.ErrDuplicate)

		evaluation, entries, err := NewRecorder(ms).Record(admitted())

		assert.Nil(t, evaluation)
		assert.Nil(t, entries)
		assert.Equal(t, ReasonDuplicateEvaluation, ReasonOf(err))
		ms.AssertNotCalled(t, "CreateScoreEntry", mock.Anything)
	})

	t.Run("failed score entry surfaces as a partial write", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("CreateEvaluation", mock.Anything).Run(func(args mock.Arguments) {
			args.Get(0).(*models.Evaluation).ID = 42
		}).Return(nil)
		ms.On("CreateScoreEntry", mock.MatchedBy(func(e *models.ScoreEntry) bool {
			return e.CriterionID == 100
		})).Return(nil)
		ms.On("CreateScoreEntry", mock.MatchedBy(func(e *models.ScoreEntry) bool {
			return e.CriterionID == 101
		})).Return(errors.New("disk full"))

		evaluation, entries, err := NewRecorder(ms).Record(admitted())

		require.NotNil(t, evaluation)
		assert.Len(t, entries, 1)

		var pw *PartialWriteError
		require.ErrorAs(t, err, &pw)
		assert.Equal(t, int64(42), pw.EvaluationID)
		assert.Equal(t, 1, pw.Stored)
		assert.Equal(t, 2, pw.Total)
	})
}

func TestRecorder_Update(t *testing.T) {
	intPtr := func(v int) *int { return &v }
	strPtr := func(v string) *string { return &v }

	stored := func() *models.Evaluation {
		return &models.Evaluation{ID: 42, FormID: 1, EvaluatorID: 10, EvaluateeID: 11, TeamID: 5, TotalScore: intPtr(85)}
	}

	t.Run("missing evaluation", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetEvaluation", int64(42)).Return(nil, nil)

		_, _, err := NewRecorder(ms).Update(42, models.EvaluationPatch{})

		assert.Equal(t, ReasonEvaluationNotFound, ReasonOf(err))
		assert.True(t, IsNotFound(err))
	})

	t.Run("empty patch changes nothing", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetEvaluation", int64(42)).Return(stored(), nil)
		ms.On("ListScoreEntries", int64(42)).Return([]models.ScoreEntry{{ID: 1, EvaluationID: 42}}, nil)

		evaluation, entries, err := NewRecorder(ms).Update(42, models.EvaluationPatch{})

		require.NoError(t, err)
		assert.Equal(t, 85, *evaluation.TotalScore)
		assert.Len(t, entries, 1)
		ms.AssertNotCalled(t, "UpdateEvaluation", mock.Anything, mock.Anything, mock.Anything)
		ms.AssertNotCalled(t, "DeleteScoreEntries", mock.Anything)
	})

	t.Run("field patch updates only named fields", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetEvaluation", int64(42)).Return(stored(), nil)
		ms.On("UpdateEvaluation", int64(42), intPtr(90), (*string)(nil)).Return(nil)
		ms.On("ListScoreEntries", int64(42)).Return(nil, nil)

		evaluation, _, err := NewRecorder(ms).Update(42, models.EvaluationPatch{TotalScore: intPtr(90)})

		require.NoError(t, err)
		assert.Equal(t, 90, *evaluation.TotalScore)
		ms.AssertExpectations(t)
	})

	t.Run("score patch replaces the stored set wholesale", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetEvaluation", int64(42)).Return(stored(), nil)
		ms.On("ListFormCriteria", int64(1)).Return(stubCriteria(), nil)
		ms.On("DeleteScoreEntries", int64(42)).Return(nil)
		ms.On("CreateScoreEntry", mock.AnythingOfType("*models.ScoreEntry")).Return(nil)

		scores := []models.SubmissionScore{{CriterionID: 100, Score: 20}}
		_, entries, err := NewRecorder(ms).Update(42, models.EvaluationPatch{Scores: &scores})

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(100), entries[0].CriterionID)
		assert.Equal(t, 20, entries[0].Score)
		ms.AssertExpectations(t)
	})

	t.Run("score patch with a foreign criterion is rejected before any write", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetEvaluation", int64(42)).Return(stored(), nil)
		ms.On("ListFormCriteria", int64(1)).Return(stubCriteria(), nil)

		scores := []models.SubmissionScore{{CriterionID: 999, Score: 1}}
		_, _, err := NewRecorder(ms).Update(42, models.EvaluationPatch{Scores: &scores, Comments: strPtr("nope")})

		assert.Equal(t, ReasonCriterionNotInForm, ReasonOf(err))
		ms.AssertNotCalled(t, "UpdateEvaluation", mock.Anything, mock.Anything, mock.Anything)
		ms.AssertNotCalled(t, "DeleteScoreEntries", mock.Anything)
	})
}

func TestRecorder_Delete(t *testing.T) {
	t.Run("removes score entries before the evaluation row", func(t *testing.T) {
		ms := new(MockStore)
		var deletedEntriesFirst bool
		ms.On("GetEvaluation", int64(42)).Return(&models.Evaluation{ID: 42}, nil)
		ms.On("DeleteScoreEntries", int64(42)).Run(func(mock.Arguments) {
			deletedEntriesFirst = true
		}).Return(nil)
		ms.On("DeleteEvaluation", int64(42)).Run(func(mock.Arguments) {
			require.True(t, deletedEntriesFirst)
		}).Return(true, nil)

		err := NewRecorder(ms).Delete(42)

		require.NoError(t, err)
		ms.AssertExpectations(t)
	})

	t.Run("missing evaluation", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetEvaluation", int64(42)).Return(nil, nil)

		err := NewRecorder(ms).Delete(42)

		assert.Equal(t, ReasonEvaluationNotFound, ReasonOf(err))
		ms.AssertNotCalled(t, "DeleteEvaluation", mock.Anything)
	})
}
