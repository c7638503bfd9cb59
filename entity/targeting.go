package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RuleOperator enumerates the attribute-rule operators
type RuleOperator string

const (
	OperatorEquals      RuleOperator = "equals"
	OperatorNotEquals   RuleOperator = "notEquals"
	OperatorContains    RuleOperator = "contains"
	OperatorNotContains RuleOperator = "notContains"
	OperatorStartsWith  RuleOperator = "startsWith"
	OperatorEndsWith    RuleOperator = "endsWith"
)

// IsValid reports whether op is one of the known operators
func (op RuleOperator) IsValid() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorContains,
		OperatorNotContains, OperatorStartsWith, OperatorEndsWith:
		return true
	}
	return false
}

// AttributeRule is a single condition on an evaluation-context attribute.
// VariationID is empty for segment membership rules, which only decide
// matching, not the served variation.
type AttributeRule struct {
	ID          string       `json:"id"`
	Attribute   string       `json:"attribute"`
	Operator    RuleOperator `json:"operator"`
	Value       string       `json:"value"`
	VariationID string       `json:"variationId,omitempty"`
}

// SegmentRule serves a variation when the context is a member of the
// referenced segment. List position is evaluation order.
type SegmentRule struct {
	SegmentID   int64  `json:"segmentId"`
	VariationID string `json:"variationId"`
}

// IndividualOverride pins a specific user to a variation
type IndividualOverride struct {
	UserID      string `json:"userId"`
	VariationID string `json:"variationId"`
}

// Targeting is the serving configuration stored per flag per environment.
// All lists are ordered; reordering changes evaluation outcomes.
type Targeting struct {
	DefaultVariationID string               `json:"defaultVariationId,omitempty"`
	OffVariationID     string               `json:"offVariationId,omitempty"`
	Individual         []IndividualOverride `json:"individual,omitempty"`
	Segments           []SegmentRule        `json:"segments,omitempty"`
	Rules              []AttributeRule      `json:"rules,omitempty"`
}

// FlagRules is the JSONB document in flag_states.rules. Targeting is
// nested one level down so the document can grow other sections later.
type FlagRules struct {
	Targeting Targeting `json:"targeting"`
}

func (r FlagRules) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flag rules: %w", err)
	}
	return string(data), nil
}

func (r *FlagRules) Scan(src any) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, r)
	case string:
		return json.Unmarshal([]byte(data), r)
	case nil:
		*r = FlagRules{}
		return nil
	default:
		return fmt.Errorf("unsupported flag rules column type %T", src)
	}
}

// FlagState is the per-(flag, environment) serving configuration.
// Rows are system-managed in lockstep with flag x environment pairs.
type FlagState struct {
	ID            int64     `json:"id" db:"id"`
	FlagID        int64     `json:"flag_id" db:"flag_id"`
	EnvironmentID int64     `json:"environment_id" db:"environment_id"`
	IsEnabled     bool      `json:"is_enabled" db:"is_enabled"`
	Rules         FlagRules `json:"rules" db:"rules"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
