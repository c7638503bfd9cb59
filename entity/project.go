package entity

import (
	"time"
)

// Project is the top-level grouping for environments, flags and segments.
// Its key is globally unique.
type Project struct {
	ID          int64     `json:"id" db:"id"`
	Key         string    `json:"key" db:"key"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Members     []string  `json:"members,omitempty"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasMember reports whether the given user belongs to the project
func (p *Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// DefaultEnvironments are created for every new project.
var DefaultEnvironments = []struct {
	Key  string
	Name string
}{
	{Key: "development", Name: "Development"},
	{Key: "staging", Name: "Staging"},
	{Key: "production", Name: "Production"},
}
