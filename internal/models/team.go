package models

type Team struct {
	ID        int64  `db:"id" json:"id"`
	ProjectID int64  `db:"project_id" json:"project_id"`
	Name      string `db:"name" json:"name"`
}

// TeamMembership links a user to a team. The (team_id, user_id) pair is
// unique at the store level.
type TeamMembership struct {
	ID     int64 `db:"id" json:"id"`
	TeamID int64 `db:"team_id" json:"team_id"`
	UserID int64 `db:"user_id" json:"user_id"`
}
