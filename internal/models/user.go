package models

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

type User struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Role  Role   `db:"role" json:"role"`
}

type Project struct {
	ID    int64  `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
}
