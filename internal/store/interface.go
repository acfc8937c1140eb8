package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/kamrat/internal/models"
)

// ErrDuplicate is returned by CreateEvaluation when the store-level unique
// constraint on (form_id, evaluator_id, evaluatee_id) rejects the insert.
var ErrDuplicate = errors.New("duplicate record")

type EntityStore interface {
	Close() error
	ApplyMigrations(dir string) error

	GetUser(id int64) (*models.User, error)
	ListUsersByIDs(ids []int64) ([]models.User, error)

	GetProject(id int64) (*models.Project, error)

	GetTeam(id int64) (*models.Team, error)
	ListTeamsByProject(projectID int64) ([]models.Team, error)
	GetMembership(teamID, userID int64) (*models.TeamMembership, error)
	ListTeamMemberships(teamID int64) ([]models.TeamMembership, error)
	ListUserMemberships(userID int64) ([]models.TeamMembership, error)

	GetForm(id int64) (*models.EvaluationForm, error)
	ListForms(projectID *int64) ([]models.EvaluationForm, error)
	CreateForm(form *models.EvaluationForm) error
	UpdateForm(id int64, patch models.FormPatch) error
	DeleteForm(id int64) (bool, error)
	CountEvaluationsByForm(formID int64) (int, error)

	GetCriterion(id int64) (*models.FormCriterion, error)
	ListFormCriteria(formID int64) ([]models.FormCriterion, error)
	CreateCriterion(c *models.FormCriterion) error
	UpdateCriterion(id int64, text *string, maxPoints, orderIndex *int) error
	DeleteCriterion(id int64) (bool, error)
	CountScoreEntriesByCriterion(criterionID int64) (int, error)

	GetEvaluation(id int64) (*models.Evaluation, error)
	FindEvaluation(formID, evaluatorID, evaluateeID int64) (*models.Evaluation, error)
	ListEvaluations(filter EvaluationFilter) ([]models.Evaluation, error)
	CreateEvaluation(e *models.Evaluation) error
	UpdateEvaluation(id int64, totalScore *int, comments *string) error
	DeleteEvaluation(id int64) (bool, error)

	CreateScoreEntry(entry *models.ScoreEntry) error
	ListScoreEntries(evaluationID int64) ([]models.ScoreEntry, error)
	ListScoreEntriesForEvaluations(ids []int64) ([]models.ScoreEntry, error)
	DeleteScoreEntries(evaluationID int64) error
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB *sqlx.DB
	// Converter rewrites ? placeholders into the dialect's form
	Converter func(string) string
	// InsertID runs an INSERT (already converted) and reports the assigned id
	InsertID func(db *sqlx.DB, query string, args ...interface{}) (int64, error)
	// IsDuplicate reports whether err is a unique-constraint violation
	IsDuplicate func(error) bool
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) GetUser(id int64) (*models.User, error) {
	var user models.User
	query := s.Converter(`SELECT id, name, email, role FROM users WHERE id = ?`)
	err := s.DB.Get(&user, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *BaseStore) ListUsersByIDs(ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, email, role FROM users WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build users lookup: %w", err)
	}

	var users []models.User
	if err := s.DB.Select(&users, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *BaseStore) GetProject(id int64) (*models.Project, error) {
	var project models.Project
	query := s.Converter(`SELECT id, title FROM projects WHERE id = ?`)
	err := s.DB.Get(&project, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

func (s *BaseStore) GetTeam(id int64) (*models.Team, error) {
	var team models.Team
	query := s.Converter(`SELECT id, project_id, name FROM teams WHERE id = ?`)
	err := s.DB.Get(&team, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &team, nil
}

func (s *BaseStore) ListTeamsByProject(projectID int64) ([]models.Team, error) {
	var teams []models.Team
	query := s.Converter(`SELECT id, project_id, name FROM teams WHERE project_id = ? ORDER BY id`)
	if err := s.DB.Select(&teams, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (s *BaseStore) GetMembership(teamID, userID int64) (*models.TeamMembership, error) {
	var m models.TeamMembership
	query := s.Converter(`SELECT id, team_id, user_id FROM team_members WHERE team_id = ? AND user_id = ?`)
	err := s.DB.Get(&m, query, teamID, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

func (s *BaseStore) ListTeamMemberships(teamID int64) ([]models.TeamMembership, error) {
	var ms []models.TeamMembership
	query := s.Converter(`SELECT id, team_id, user_id FROM team_members WHERE team_id = ? ORDER BY id`)
	if err := s.DB.Select(&ms, query, teamID); err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return ms, nil
}

func (s *BaseStore) ListUserMemberships(userID int64) ([]models.TeamMembership, error) {
	var ms []models.TeamMembership
	query := s.Converter(`SELECT id, team_id, user_id FROM team_members WHERE user_id = ? ORDER BY id`)
	if err := s.DB.Select(&ms, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user memberships: %w", err)
	}
	return ms, nil
}

func (s *BaseStore) GetForm(id int64) (*models.EvaluationForm, error) {
	var form models.EvaluationForm
	query := s.Converter(`SELECT id, project_id, title, description, max_score FROM evaluation_forms WHERE id = ?`)
	err := s.DB.Get(&form, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	return &form, nil
}

func (s *BaseStore) ListForms(projectID *int64) ([]models.EvaluationForm, error) {
	var forms []models.EvaluationForm
	query := `SELECT id, project_id, title, description, max_score FROM evaluation_forms`
	args := []interface{}{}
	if projectID != nil {
		query += ` WHERE project_id = ?`
		args = append(args, *projectID)
	}
	query += ` ORDER BY id DESC`

	if err := s.DB.Select(&forms, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	return forms, nil
}

func (s *BaseStore) CreateForm(form *models.EvaluationForm) error {
	query := s.Converter(`
		INSERT INTO evaluation_forms (project_id, title, description, max_score)
		VALUES (?, ?, ?, ?)
	`)
	id, err := s.InsertID(s.DB, query, form.ProjectID, form.Title, form.Description, form.MaxScore)
	if err != nil {
		return fmt.Errorf("failed to create form: %w", err)
	}
	form.ID = id
	return nil
}

func (s *BaseStore) UpdateForm(id int64, patch models.FormPatch) error {
	sets := []string{}
	args := []interface{}{}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.MaxScore != nil {
		sets = append(sets, "max_score = ?")
		args = append(args, *patch.MaxScore)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := s.Converter(fmt.Sprintf(`UPDATE evaluation_forms SET %s WHERE id = ?`, strings.Join(sets, ", ")))
	if _, err := s.DB.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update form: %w", err)
	}
	return nil
}

func (s *BaseStore) DeleteForm(id int64) (bool, error) {
	query := s.Converter(`DELETE FROM evaluation_forms WHERE id = ?`)
	res, err := s.DB.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete form: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete form: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) CountEvaluationsByForm(formID int64) (int, error) {
	var count int
	query := s.Converter(`SELECT COUNT(*) FROM evaluations WHERE form_id = ?`)
	if err := s.DB.Get(&count, query, formID); err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

func (s *BaseStore) GetCriterion(id int64) (*models.FormCriterion, error) {
	var c models.FormCriterion
	query := s.Converter(`SELECT id, form_id, text, max_points, order_index FROM form_criteria WHERE id = ?`)
	err := s.DB.Get(&c, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get criterion: %w", err)
	}
	return &c, nil
}

func (s *BaseStore) ListFormCriteria(formID int64) ([]models.FormCriterion, error) {
	var cs []models.FormCriterion
	query := s.Converter(`
		SELECT id, form_id, text, max_points, order_index
		FROM form_criteria
		WHERE form_id = ?
		ORDER BY order_index ASC
	`)
	if err := s.DB.Select(&cs, query, formID); err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	return cs, nil
}

func (s *BaseStore) CreateCriterion(c *models.FormCriterion) error {
	query := s.Converter(`
		INSERT INTO form_criteria (form_id, text, max_points, order_index)
		VALUES (?, ?, ?, ?)
	`)
	id, err := s.InsertID(s.DB, query, c.FormID, c.Text, c.MaxPoints, c.OrderIndex)
	if err != nil {
		return fmt.Errorf("failed to create criterion: %w", err)
	}
	c.ID = id
	return nil
}

func (s *BaseStore) UpdateCriterion(id int64, text *string, maxPoints, orderIndex *int) error {
	sets := []string{}
	args := []interface{}{}
	if text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *text)
	}
	if maxPoints != nil {
		sets = append(sets, "max_points = ?")
		args = append(args, *maxPoints)
	}
	if orderIndex != nil {
		sets = append(sets, "order_index = ?")
		args = append(args, *orderIndex)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := s.Converter(fmt.Sprintf(`UPDATE form_criteria SET %s WHERE id = ?`, strings.Join(sets, ", ")))
	if _, err := s.DB.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update criterion: %w", err)
	}
	return nil
}

func (s *BaseStore) DeleteCriterion(id int64) (bool, error) {
	query := s.Converter(`DELETE FROM form_criteria WHERE id = ?`)
	res, err := s.DB.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete criterion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete criterion: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) CountScoreEntriesByCriterion(criterionID int64) (int, error) {
	var count int
	query := s.Converter(`SELECT COUNT(*) FROM evaluation_scores WHERE criterion_id = ?`)
	if err := s.DB.Get(&count, query, criterionID); err != nil {
		return 0, fmt.Errorf("failed to count score entries: %w", err)
	}
	return count, nil
}

func (s *BaseStore) GetEvaluation(id int64) (*models.Evaluation, error) {
	var e models.Evaluation
	query := s.Converter(`
		SELECT id, form_id, evaluator_id, evaluatee_id, team_id, total_score, comments, submitted_at
		FROM evaluations
		WHERE id = ?
	`)
	err := s.DB.Get(&e, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return &e, nil
}

func (s *BaseStore) FindEvaluation(formID, evaluatorID, evaluateeID int64) (*models.Evaluation, error) {
	var e models.Evaluation
	query := s.Converter(`
		SELECT id, form_id, evaluator_id, evaluatee_id, team_id, total_score, comments, submitted_at
		FROM evaluations
		WHERE form_id = ? AND evaluator_id = ? AND evaluatee_id = ?
	`)
	err := s.DB.Get(&e, query, formID, evaluatorID, evaluateeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find evaluation: %w", err)
	}
	return &e, nil
}

func (s *BaseStore) ListEvaluations(filter EvaluationFilter) ([]models.Evaluation, error) {
	query := `
		SELECT id, form_id, evaluator_id, evaluatee_id, team_id, total_score, comments, submitted_at
		FROM evaluations
		WHERE 1=1
	`
	args := []interface{}{}
	if filter.FormID != nil {
		query += ` AND form_id = ?`
		args = append(args, *filter.FormID)
	}
	if filter.TeamID != nil {
		query += ` AND team_id = ?`
		args = append(args, *filter.TeamID)
	}
	if filter.EvaluatorID != nil {
		query += ` AND evaluator_id = ?`
		args = append(args, *filter.EvaluatorID)
	}
	if filter.EvaluateeID != nil {
		query += ` AND evaluatee_id = ?`
		args = append(args, *filter.EvaluateeID)
	}
	query += ` ORDER BY submitted_at DESC, id DESC`

	var evals []models.Evaluation
	if err := s.DB.Select(&evals, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evals, nil
}

func (s *BaseStore) CreateEvaluation(e *models.Evaluation) error {
	query := s.Converter(`
		INSERT INTO evaluations (form_id, evaluator_id, evaluatee_id, team_id, total_score, comments, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	id, err := s.InsertID(s.DB, query,
		e.FormID, e.EvaluatorID, e.EvaluateeID, e.TeamID, e.TotalScore, e.Comments, e.SubmittedAt,
	)
	if err != nil {
		if s.IsDuplicate != nil && s.IsDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	e.ID = id
	return nil
}

func (s *BaseStore) UpdateEvaluation(id int64, totalScore *int, comments *string) error {
	sets := []string{}
	args := []interface{}{}
	if totalScore != nil {
		sets = append(sets, "total_score = ?")
		args = append(args, *totalScore)
	}
	if comments != nil {
		sets = append(sets, "comments = ?")
		args = append(args, *comments)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := s.Converter(fmt.Sprintf(`UPDATE evaluations SET %s WHERE id = ?`, strings.Join(sets, ", ")))
	if _, err := s.DB.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update evaluation: %w", err)
	}
	return nil
}

func (s *BaseStore) DeleteEvaluation(id int64) (bool, error) {
	query := s.Converter(`DELETE FROM evaluations WHERE id = ?`)
	res, err := s.DB.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete evaluation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete evaluation: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) CreateScoreEntry(entry *models.ScoreEntry) error {
	query := s.Converter(`
		INSERT INTO evaluation_scores (evaluation_id, criterion_id, score)
		VALUES (?, ?, ?)
	`)
	id, err := s.InsertID(s.DB, query, entry.EvaluationID, entry.CriterionID, entry.Score)
	if err != nil {
		return fmt.Errorf("failed to create score entry: %w", err)
	}
	entry.ID = id
	return nil
}

func (s *BaseStore) ListScoreEntries(evaluationID int64) ([]models.ScoreEntry, error) {
	var entries []models.ScoreEntry
	query := s.Converter(`
		SELECT id, evaluation_id, criterion_id, score
		FROM evaluation_scores
		WHERE evaluation_id = ?
		ORDER BY id
	`)
	if err := s.DB.Select(&entries, query, evaluationID); err != nil {
		return nil, fmt.Errorf("failed to list score entries: %w", err)
	}
	return entries, nil
}

// ListScoreEntriesForEvaluations fetches entries for a whole evaluation set in
// one query, so form reports avoid a lookup per row.
func (s *BaseStore) ListScoreEntriesForEvaluations(ids []int64) ([]models.ScoreEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, evaluation_id, criterion_id, score
		FROM evaluation_scores
		WHERE evaluation_id IN (?)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build score entries lookup: %w", err)
	}

	var entries []models.ScoreEntry
	if err := s.DB.Select(&entries, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list score entries: %w", err)
	}
	return entries, nil
}

func (s *BaseStore) DeleteScoreEntries(evaluationID int64) error {
	query := s.Converter(`DELETE FROM evaluation_scores WHERE evaluation_id = ?`)
	if _, err := s.DB.Exec(query, evaluationID); err != nil {
		return fmt.Errorf("failed to delete score entries: %w", err)
	}
	return nil
}
