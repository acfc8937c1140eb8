package store

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

type DBConfig struct {
	DSN  string
	Type DatabaseType
}

// EvaluationFilter narrows ListEvaluations. Nil fields are not applied.
type EvaluationFilter struct {
	FormID      *int64
	TeamID      *int64
	EvaluatorID *int64
	EvaluateeID *int64
}
