// Package report rolls raw evaluation rows up into per-member, per-team,
// per-project and per-criterion statistics. The Build* functions are pure:
// they only look at the rows they are handed, so they are unit-testable
// without a live store.
package report

import (
	"math"

	"github.com/shrimpsizemoose/kamrat/internal/models"
)

type MemberStats struct {
	Member              models.User `json:"member"`
	EvaluationsReceived int         `json:"evaluations_received"`
	AverageScore        float64     `json:"average_score"`
}

type TeamStats struct {
	Team             models.Team   `json:"team"`
	Members          []MemberStats `json:"members"`
	TotalMembers     int           `json:"total_members"`
	TotalEvaluations int           `json:"total_evaluations"`
	AverageScore     float64       `json:"average_score"`
	// Scores carries the included raw scores so project rollups can average
	// over the union without re-fetching.
	Scores []int `json:"-"`
}

type ProjectStats struct {
	Project          models.Project `json:"project"`
	Teams            []TeamStats    `json:"teams"`
	TotalTeams       int            `json:"total_teams"`
	TotalEvaluations int            `json:"total_evaluations"`
	AverageScore     float64        `json:"average_score"`
}

type UserTeamStats struct {
	Team             models.Team `json:"team"`
	EvaluationsCount int         `json:"evaluations_count"`
	AverageScore     float64     `json:"average_score"`
}

type UserStats struct {
	User                 models.User     `json:"user"`
	Teams                []UserTeamStats `json:"teams"`
	TeamsCount           int             `json:"teams_count"`
	EvaluationsReceived  int             `json:"evaluations_received"`
	EvaluationsGiven     int             `json:"evaluations_given"`
	AverageScoreReceived float64         `json:"average_score_received"`
}

type CriterionStats struct {
	Criterion      models.FormCriterion `json:"criterion"`
	TotalResponses int                  `json:"total_responses"`
	AverageScore   float64              `json:"average_score"`
	MaxScore       int                  `json:"max_score"`
	MinScore       int                  `json:"min_score"`
}

type FormStats struct {
	Form             models.EvaluationForm `json:"form"`
	Criteria         []CriterionStats      `json:"criteria_analysis"`
	TotalEvaluations int                   `json:"total_evaluations"`
}

// Round2 rounds half-to-even at two decimal places, the convention for every
// mean in a report.
func Round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// Mean of an empty set is 0 by definition, never an error.
func Mean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return Round2(float64(sum) / float64(len(scores)))
}

// includedScores extracts declared totals; evaluations without one are
// excluded, not counted as zero.
func includedScores(evals []models.Evaluation) []int {
	scores := make([]int, 0, len(evals))
	for _, e := range evals {
		if e.TotalScore != nil {
			scores = append(scores, *e.TotalScore)
		}
	}
	return scores
}

func BuildTeamReport(team models.Team, members []models.User, evals []models.Evaluation) TeamStats {
	stats := TeamStats{
		Team:             team,
		Members:          make([]MemberStats, 0, len(members)),
		TotalMembers:     len(members),
		TotalEvaluations: len(evals),
	}

	for _, member := range members {
		var received []models.Evaluation
		for _, e := range evals {
			if e.EvaluateeID == member.ID {
				received = append(received, e)
			}
		}
		scores := includedScores(received)
		stats.Scores = append(stats.Scores, scores...)
		stats.Members = append(stats.Members, MemberStats{
			Member:              member,
			EvaluationsReceived: len(received),
			AverageScore:        Mean(scores),
		})
	}

	stats.AverageScore = Mean(stats.Scores)
	return stats
}

func BuildProjectReport(project models.Project, teams []TeamStats) ProjectStats {
	stats := ProjectStats{
		Project:    project,
		Teams:      teams,
		TotalTeams: len(teams),
	}
	if teams == nil {
		stats.Teams = []TeamStats{}
	}

	var all []int
	for _, t := range teams {
		stats.TotalEvaluations += t.TotalEvaluations
		all = append(all, t.Scores...)
	}
	stats.AverageScore = Mean(all)
	return stats
}

func BuildUserReport(user models.User, teams []models.Team, received, given []models.Evaluation) UserStats {
	stats := UserStats{
		User:                 user,
		Teams:                make([]UserTeamStats, 0, len(teams)),
		TeamsCount:           len(teams),
		EvaluationsReceived:  len(received),
		EvaluationsGiven:     len(given),
		AverageScoreReceived: Mean(includedScores(received)),
	}

	for _, team := range teams {
		var teamEvals []models.Evaluation
		for _, e := range received {
			if e.TeamID == team.ID {
				teamEvals = append(teamEvals, e)
			}
		}
		stats.Teams = append(stats.Teams, UserTeamStats{
			Team:             team,
			EvaluationsCount: len(teamEvals),
			AverageScore:     Mean(includedScores(teamEvals)),
		})
	}

	return stats
}

// BuildFormReport groups score entries by criterion. Criteria with no
// responses stay in the report with zero statistics.
func BuildFormReport(form models.EvaluationForm, criteria []models.FormCriterion, evals []models.Evaluation, entries []models.ScoreEntry) FormStats {
	byCriterion := make(map[int64][]int)
	for _, entry := range entries {
		byCriterion[entry.CriterionID] = append(byCriterion[entry.CriterionID], entry.Score)
	}

	stats := FormStats{
		Form:             form,
		Criteria:         make([]CriterionStats, 0, len(criteria)),
		TotalEvaluations: len(evals),
	}

	for _, criterion := range criteria {
		scores := byCriterion[criterion.ID]
		cs := CriterionStats{
			Criterion:      criterion,
			TotalResponses: len(scores),
			AverageScore:   Mean(scores),
		}
		for i, s := range scores {
			if i == 0 || s > cs.MaxScore {
				cs.MaxScore = s
			}
			if i == 0 || s < cs.MinScore {
				cs.MinScore = s
			}
		}
		stats.Criteria = append(stats.Criteria, cs)
	}

	return stats
}
