package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/kamrat/internal/models"
	"github.com/shrimpsizemoose/kamrat/internal/store"
)

// MockStore implements store.EntityStore for validator and recorder tests.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func (m *MockStore) ApplyMigrations(dir string) error {
	return m.Called(dir).Error(0)
}

func (m *MockStore) GetUser(id int64) (*models.User, error) {
	args := m.Called(id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListUsersByIDs(ids []int64) ([]models.User, error) {
	args := m.Called(ids)
	if us := args.Get(0); us != nil {
		return us.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetProject(id int64) (*models.Project, error) {
	args := m.Called(id)
	if p := args.Get(0); p != nil {
		return p.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetTeam(id int64) (*models.Team, error) {
	args := m.Called(id)
	if t := args.Get(0); t != nil {
		return t.(*models.Team), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListTeamsByProject(projectID int64) ([]models.Team, error) {
	args := m.Called(projectID)
	if ts := args.Get(0); ts != nil {
		return ts.([]models.Team), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetMembership(teamID, userID int64) (*models.TeamMembership, error) {
	args := m.Called(teamID, userID)
	if ms := args.Get(0); ms != nil {
		return ms.(*models.TeamMembership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListTeamMemberships(teamID int64) ([]models.TeamMembership, error) {
	args := m.Called(teamID)
	if ms := args.Get(0); ms != nil {
		return ms.([]models.TeamMembership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListUserMemberships(userID int64) ([]models.TeamMembership, error) {
	args := m.Called(userID)
	if ms := args.Get(0); ms != nil {
		return ms.([]models.TeamMembership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetForm(id int64) (*models.EvaluationForm, error) {
	args := m.Called(id)
	if f := args.Get(0); f != nil {
		return f.(*models.EvaluationForm), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListForms(projectID *int64) ([]models.EvaluationForm, error) {
	args := m.Called(projectID)
	if fs := args.Get(0); fs != nil {
		return fs.([]models.EvaluationForm), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) CreateForm(form *models.EvaluationForm) error {
	return m.Called(form).Error(0)
}

func (m *MockStore) UpdateForm(id int64, patch models.FormPatch) error {
	return m.Called(id, patch).Error(0)
}

func (m *MockStore) DeleteForm(id int64) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CountEvaluationsByForm(formID int64) (int, error) {
	args := m.Called(formID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) GetCriterion(id int64) (*models.FormCriterion, error) {
	args := m.Called(id)
	if c := args.Get(0); c != nil {
		return c.(*models.FormCriterion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListFormCriteria(formID int64) ([]models.FormCriterion, error) {
	args := m.Called(formID)
	if cs := args.Get(0); cs != nil {
		return cs.([]models.FormCriterion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) CreateCriterion(c *models.FormCriterion) error {
	return m.Called(c).Error(0)
}

func (m *MockStore) UpdateCriterion(id int64, text *string, maxPoints, orderIndex *int) error {
	return m.Called(id, text, maxPoints, orderIndex).Error(0)
}

func (m *MockStore) DeleteCriterion(id int64) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CountScoreEntriesByCriterion(criterionID int64) (int, error) {
	args := m.Called(criterionID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) GetEvaluation(id int64) (*models.Evaluation, error) {
	args := m.Called(id)
	if e := args.Get(0); e != nil {
		return e.(*models.Evaluation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) FindEvaluation(formID, evaluatorID, evaluateeID int64) (*models.Evaluation, error) {
	args := m.Called(formID, evaluatorID, evaluateeID)
	if e := args.Get(0); e != nil {
		return e.(*models.Evaluation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListEvaluations(filter store.EvaluationFilter) ([]models.Evaluation, error) {
	args := m.Called(filter)
	if es := args.Get(0); es != nil {
		return es.([]models.Evaluation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) CreateEvaluation(e *models.Evaluation) error {
	return m.Called(e).Error(0)
}

func (m *MockStore) UpdateEvaluation(id int64, totalScore *int, comments *string) error {
	return m.Called(id, totalScore, comments).Error(0)
}

func (m *MockStore) DeleteEvaluation(id int64) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CreateScoreEntry(entry *models.ScoreEntry) error {
	return m.Called(entry).Error(0)
}

func (m *MockStore) ListScoreEntries(evaluationID int64) ([]models.ScoreEntry, error) {
	args := m.Called(evaluationID)
	if es := args.Get(0); es != nil {
		return es.([]models.ScoreEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListScoreEntriesForEvaluations(ids []int64) ([]models.ScoreEntry, error) {
	args := m.Called(ids)
	if es := args.Get(0); es != nil {
		return es.([]models.ScoreEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) DeleteScoreEntries(evaluationID int64) error {
	return m.Called(evaluationID).Error(0)
}

func validSubmission() models.Submission {
	return models.Submission{
		FormID:      1,
		EvaluatorID: 10,
		EvaluateeID: 11,
		TeamID:      5,
		TotalScore:  85,
		Comments:    "solid work",
		Scores: []models.SubmissionScore{
			{CriterionID: 100, Score: 35},
			{CriterionID: 101, Score: 50},
		},
	}
}

func stubForm() *models.EvaluationForm {
	return &models.EvaluationForm{ID: 1, ProjectID: 1, Title: "Sprint 1", MaxScore: 100}
}

func stubTeam() *models.Team {
	return &models.Team{ID: 5, ProjectID: 1, Name: "gophers"}
}

func stubCriteria() []models.FormCriterion {
	return []models.FormCriterion{
		{ID: 100, FormID: 1, Text: "Communication", MaxPoints: 40, OrderIndex: 0},
		{ID: 101, FormID: 1, Text: "Code quality", MaxPoints: 60, OrderIndex: 1},
	}
}

func TestValidator_AdmitsValidSubmission(t *testing.T) {
	ms := new(MockStore)
	ms.On("GetForm", int64(1)).Return(stubForm(), nil)
	ms.On("GetTeam", int64(5)).Return(stubTeam(), nil)
	ms.On("GetUser", int64(10)).Return(&models.User{ID: 10, Name: "Alice"}, nil)
	ms.On("GetUser", int64(11)).Return(&models.User{ID: 11, Name: "Bob"}, nil)
	ms.On("GetMembership", int64(5), int64(10)).Return(&models.TeamMembership{ID: 1, TeamID: 5, UserID: 10}, nil)
	ms.On("GetMembership", int64(5), int64(11)).Return(&models.TeamMembership{ID: 2, TeamID: 5, UserID: 11}, nil)
	ms.On("FindEvaluation", int64(1), int64(10), int64(11)).Return(nil, nil)
	ms.On("ListFormCriteria", int64(1)).Return(stubCriteria(), nil)

	adm, err := NewValidator(ms).Validate(validSubmission())

	require.NoError(t, err)
	require.NotNil(t, adm)
	assert.Equal(t, int64(1), adm.Form.ID)
	assert.Equal(t, int64(5), adm.Team.ID)
	assert.Len(t, adm.Criteria, 2)
	ms.AssertExpectations(t)
}

func TestValidator_RejectionReasons(t *testing.T) {
	testCases := []struct {
		name     string
		sub      func() models.Submission
		setup    func(ms *MockStore)
		reason   Reason
		notFound bool
	}{
		{
			name: "missing form",
			sub:  validSubmission,
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(nil, nil)
			},
			reason:   ReasonFormNotFound,
			notFound: true,
		},
		{
			name: "missing team",
			sub:  validSubmission,
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(stubForm(), nil)
				ms.On("GetTeam", int64(5)).Return(nil, nil)
			},
			reason:   ReasonTeamNotFound,
			notFound: true,
		},
		{
			name: "missing evaluator",
			sub:  validSubmission,
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(stubForm(), nil)
				ms.On("GetTeam", int64(5)).Return(stubTeam(), nil)
				ms.On("GetUser", int64(10)).Return(nil, nil)
			},
			reason:   ReasonEvaluatorNotFound,
			notFound: true,
		},
		{
			name: "evaluator outside the team",
			sub:  validSubmission,
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(stubForm(), nil)
				ms.On("GetTeam", int64(5)).Return(stubTeam(), nil)
				ms.On("GetUser", int64(10)).Return(&models.User{ID: 10}, nil)
				ms.On("GetMembership", int64(5), int64(10)).Return(nil, nil)
			},
			reason: ReasonEvaluatorNotMember,
		},
		{
			name: "missing evaluatee",
			sub:  validSubmission,
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(stubForm(), nil)
				ms.On("GetTeam", int64(5)).Return(stubTeam(), nil)
				ms.On("GetUser", int64(10)).Return(&models.User{ID: 10}, nil)
				ms.On("GetMembership", int64(5), int64(10)).Return(&models.TeamMembership{}, nil)
				ms.On("GetUser", int64(11)).Return(nil, nil)
			},
			reason:   ReasonEvaluateeNotFound,
			notFound: true,
		},
		{
			name: "evaluatee outside the team",
			sub:  validSubmission,
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(stubForm(), nil)
				ms.On("GetTeam", int64(5)).Return(stubTeam(), nil)
				ms.On("GetUser", int64(10)).Return(&models.User{ID: 10}, nil)
				ms.On("GetMembership", int64(5), int64(10)).Return(&models.TeamMembership{}, nil)
				ms.On("GetUser", int64(11)).Return(&models.User{ID: 11}, nil)
				ms.On("GetMembership", int64(5), int64(11)).Return(nil, nil)
			},
			reason: ReasonEvaluateeNotMember,
		},
		{
			name: "self evaluation",
			sub: func() models.Submission {
				sub := validSubmission()
				sub.EvaluateeID = sub.EvaluatorID
				return sub
			},
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(stubForm(), nil)
				ms.On("GetTeam", int64(5)).Return(stubTeam(), nil)
				ms.On("GetUser", int64(10)).Return(&models.User{ID: 10}, nil)
				ms.On("GetMembership", int64(5), int64(10)).Return(&models.TeamMembership{}, nil)
			},
			reason: ReasonSelfEvaluation,
		},
		{
			name: "duplicate submission",
			sub:  validSubmission,
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(stubForm(), nil)
				ms.On("GetTeam", int64(5)).Return(stubTeam(), nil)
				ms.On("GetUser", int64(10)).Return(&models.User{ID: 10}, nil)
				ms.On("GetUser", int64(11)).Return(&models.User{ID: 11}, nil)
				ms.On("GetMembership", int64(5), int64(10)).Return(&models.TeamMembership{}, nil)
				ms.On("GetMembership", int64(5), int64(11)).Return(&models.TeamMembership{}, nil)
				ms.On("FindEvaluation", int64(1), int64(10), int64(11)).Return(&models.Evaluation{ID: 7}, nil)
			},
			reason: ReasonDuplicateEvaluation,
		},
		{
			name: "score for foreign criterion",
			sub: func() models.Submission {
				sub := validSubmission()
				sub.Scores = append(sub.Scores, models.SubmissionScore{CriterionID: 999, Score: 1})
				return sub
			},
			setup: func(ms *MockStore) {
				ms.On("GetForm", int64(1)).Return(stubForm(), nil)
				ms.On("GetTeam", int64(5)).Return(stubTeam(), nil)
				ms.On("GetUser", int64(10)).Return(&models.User{ID: 10}, nil)
				ms.On("GetUser", int64(11)).Return(&models.User{ID: 11}, nil)
				ms.On("GetMembership", int64(5), int64(10)).Return(&models.TeamMembership{}, nil)
				ms.On("GetMembership", int64(5), int64(11)).Return(&models.TeamMembership{}, nil)
				ms.On("FindEvaluation", int64(1), int64(10), int64(11)).Return(nil, nil)
				ms.On("ListFormCriteria", int64(1)).Return(stubCriteria(), nil)
			},
			reason: ReasonCriterionNotInForm,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ms := new(MockStore)
			tc.setup(ms)

			adm, err := NewValidator(ms).Validate(tc.sub())

			assert.Nil(t, adm)
			require.Error(t, err)
			assert.Equal(t, tc.reason, ReasonOf(err))
			assert.Equal(t, tc.notFound, IsNotFound(err))
			ms.AssertExpectations(t)
		})
	}
}

func TestValidator_StopsAtFirstFailure(t *testing.T) {
	ms := new(MockStore)
	ms.On("GetForm", int64(1)).Return(nil, nil)

	_, err := NewValidator(ms).Validate(validSubmission())

	require.Error(t, err)
	// once the form lookup fails nothing else should be consulted
	ms.AssertNotCalled(t, "GetTeam", mock.Anything)
	ms.AssertNotCalled(t, "GetUser", mock.Anything)
	ms.AssertNotCalled(t, "FindEvaluation", mock.Anything, mock.Anything, mock.Anything)
}
