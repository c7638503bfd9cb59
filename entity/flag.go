package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FlagType enumerates the value types a flag can serve
type FlagType string

const (
	FlagTypeBoolean FlagType = "boolean"
	FlagTypeString  FlagType = "string"
	FlagTypeNumber  FlagType = "number"
	FlagTypeJSON    FlagType = "json"
)

// IsValid reports whether t is one of the known flag types
func (t FlagType) IsValid() bool {
	switch t {
	case FlagTypeBoolean, FlagTypeString, FlagTypeNumber, FlagTypeJSON:
		return true
	}
	return false
}

// Canonical boolean variations. Every boolean flag carries both and
// they can never be deleted.
const (
	BooleanVariationTrueName  = "True"
	BooleanVariationTrueValue = "true"

	BooleanVariationFalseName  = "False"
	BooleanVariationFalseValue = "false"
)

// Variation is one concrete value a flag can serve. Value is always
// string-encoded; Type overrides the flag's type when set.
type Variation struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Value string   `json:"value"`
	Type  FlagType `json:"type,omitempty"`
}

// IsCanonicalBoolean reports whether v is one of the two protected
// variations of a boolean flag
func (v Variation) IsCanonicalBoolean() bool {
	return (v.Name == BooleanVariationTrueName && v.Value == BooleanVariationTrueValue) ||
		(v.Name == BooleanVariationFalseName && v.Value == BooleanVariationFalseValue)
}

// Variations is stored as a JSONB column
type Variations []Variation

func (v Variations) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variations: %w", err)
	}
	return string(data), nil
}

func (v *Variations) Scan(src any) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	case nil:
		*v = nil
		return nil
	default:
		return fmt.Errorf("unsupported variations column type %T", src)
	}
}

// FeatureFlag is the flag configuration shared across environments.
// Per-environment serving state lives in FlagState.
type FeatureFlag struct {
	ID           int64      `json:"id" db:"id"`
	ProjectID    int64      `json:"project_id" db:"project_id"`
	Key          string     `json:"key" db:"key"`
	Name         string     `json:"name" db:"name"`
	Description  string     `json:"description,omitempty" db:"description"`
	Type         FlagType   `json:"type" db:"type"`
	DefaultValue string     `json:"default_value" db:"default_value"`
	Variations   Variations `json:"variations" db:"variations"`
	IsArchived   bool       `json:"is_archived" db:"is_archived"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// VariationByID returns the variation with the given ID, or nil
func (f *FeatureFlag) VariationByID(id string) *Variation {
	for i := range f.Variations {
		if f.Variations[i].ID == id {
			return &f.Variations[i]
		}
	}
	return nil
}

// VariationType resolves the effective type for a variation: its own
// type when set, otherwise the flag's type
func (f *FeatureFlag) VariationType(v Variation) FlagType {
	if v.Type != "" {
		return v.Type
	}
	return f.Type
}
