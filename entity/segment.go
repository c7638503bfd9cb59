package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SegmentRules is stored as a JSONB column
type SegmentRules []AttributeRule

func (r SegmentRules) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal segment rules: %w", err)
	}
	return string(data), nil
}

func (r *SegmentRules) Scan(src any) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, r)
	case string:
		return json.Unmarshal([]byte(data), r)
	case nil:
		*r = nil
		return nil
	default:
		return fmt.Errorf("unsupported segment rules column type %T", src)
	}
}

// Segment is a named, rule-defined group of evaluation contexts. A context
// is a member when it satisfies every rule (AND combination).
type Segment struct {
	ID          int64        `json:"id" db:"id"`
	ProjectID   int64        `json:"project_id" db:"project_id"`
	Key         string       `json:"key" db:"key"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description,omitempty" db:"description"`
	Rules       SegmentRules `json:"rules" db:"rules"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}
