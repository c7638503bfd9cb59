package entity

import (
	"time"
)

// Environment is a deployment context within a project. Its key is unique
// within the owning project, not globally.
type Environment struct {
	ID        int64     `json:"id" db:"id"`
	ProjectID int64     `json:"project_id" db:"project_id"`
	Key       string    `json:"key" db:"key"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
