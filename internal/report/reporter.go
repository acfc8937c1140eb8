package report

import (
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/kamrat/internal/models"
	"github.com/shrimpsizemoose/kamrat/internal/store"
)

var (
	ErrTeamNotFound    = errors.New("team not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrFormNotFound    = errors.New("form not found")
)

// Reporter fetches the record sets a report needs and hands them to the pure
// Build* functions.
type Reporter struct {
	store store.EntityStore
}

func NewReporter(s store.EntityStore) *Reporter {
	return &Reporter{store: s}
}

func (r *Reporter) TeamReport(teamID int64) (*TeamStats, error) {
	team, err := r.store.GetTeam(teamID)
	if err != nil {
		return nil, fmt.Errorf("team lookup: %w", err)
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	return r.teamReport(*team)
}

func (r *Reporter) teamReport(team models.Team) (*TeamStats, error) {
	memberships, err := r.store.ListTeamMemberships(team.ID)
	if err != nil {
		return nil, fmt.Errorf("memberships lookup: %w", err)
	}
	ids := make([]int64, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	members, err := r.store.ListUsersByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("members lookup: %w", err)
	}

	evals, err := r.store.ListEvaluations(store.EvaluationFilter{TeamID: &team.ID})
	if err != nil {
		return nil, fmt.Errorf("evaluations lookup: %w", err)
	}

	stats := BuildTeamReport(team, members, evals)
	return &stats, nil
}

func (r *Reporter) ProjectReport(projectID int64) (*ProjectStats, error) {
	project, err := r.store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("project lookup: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	teams, err := r.store.ListTeamsByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("teams lookup: %w", err)
	}

	teamStats := make([]TeamStats, 0, len(teams))
	for _, team := range teams {
		ts, err := r.teamReport(team)
		if err != nil {
			return nil, err
		}
		teamStats = append(teamStats, *ts)
	}

	stats := BuildProjectReport(*project, teamStats)
	return &stats, nil
}

func (r *Reporter) UserReport(userID int64) (*UserStats, error) {
	user, err := r.store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	memberships, err := r.store.ListUserMemberships(userID)
	if err != nil {
		return nil, fmt.Errorf("memberships lookup: %w", err)
	}
	teams := make([]models.Team, 0, len(memberships))
	for _, m := range memberships {
		team, err := r.store.GetTeam(m.TeamID)
		if err != nil {
			return nil, fmt.Errorf("team lookup: %w", err)
		}
		if team != nil {
			teams = append(teams, *team)
		}
	}

	received, err := r.store.ListEvaluations(store.EvaluationFilter{EvaluateeID: &userID})
	if err != nil {
		return nil, fmt.Errorf("received evaluations lookup: %w", err)
	}
	given, err := r.store.ListEvaluations(store.EvaluationFilter{EvaluatorID: &userID})
	if err != nil {
		return nil, fmt.Errorf("given evaluations lookup: %w", err)
	}

	stats := BuildUserReport(*user, teams, received, given)
	return &stats, nil
}

func (r *Reporter) FormReport(formID int64) (*FormStats, error) {
	form, err := r.store.GetForm(formID)
	if err != nil {
		return nil, fmt.Errorf("form lookup: %w", err)
	}
	if form == nil {
		return nil, ErrFormNotFound
	}

	criteria, err := r.store.ListFormCriteria(formID)
	if err != nil {
		return nil, fmt.Errorf("criteria lookup: %w", err)
	}

	evals, err := r.store.ListEvaluations(store.EvaluationFilter{FormID: &formID})
	if err != nil {
		return nil, fmt.Errorf("evaluations lookup: %w", err)
	}

	ids := make([]int64, 0, len(evals))
	for _, e := range evals {
		ids = append(ids, e.ID)
	}
	// one batched IN lookup for the whole evaluation set
	entries, err := r.store.ListScoreEntriesForEvaluations(ids)
	if err != nil {
		return nil, fmt.Errorf("score entries lookup: %w", err)
	}

	stats := BuildFormReport(*form, criteria, evals, entries)
	return &stats, nil
}
