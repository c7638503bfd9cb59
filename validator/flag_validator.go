package validator

import (
	"flagbase/entity"

	"github.com/google/uuid"
)

// FlagCreateRequest represents the request payload for creating a feature flag.
// Type defaults to boolean when omitted.
type FlagCreateRequest struct {
	Key          string             `json:"key" validate:"required,resource_key,min=2,max=100"`
	Name         string             `json:"name" validate:"required,min=2,max=100"`
	Description  string             `json:"description,omitempty" validate:"max=500"`
	Type         string             `json:"type,omitempty" validate:"omitempty,flag_type"`
	DefaultValue string             `json:"default_value,omitempty"`
	Variations   []VariationRequest `json:"variations,omitempty" validate:"dive"`
}

// FlagUpdateRequest represents the request payload for updating a flag
type FlagUpdateRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Description  string `json:"description,omitempty" validate:"max=500"`
	DefaultValue string `json:"default_value,omitempty"`
}

// VariationRequest represents a variation in create/update payloads.
// Value typing is checked against the flag type by the service, since it
// depends on the owning flag.
type VariationRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty" validate:"omitempty,flag_type"`
}

// ToEntity converts the request into a variation with a fresh ID
func (r VariationRequest) ToEntity() entity.Variation {
	return entity.Variation{
		ID:    uuid.NewString(),
		Name:  r.Name,
		Value: r.Value,
		Type:  entity.FlagType(r.Type),
	}
}

// FlagStateUpdateRequest represents the request payload for updating the
// per-environment serving configuration of a flag
type FlagStateUpdateRequest struct {
	IsEnabled bool             `json:"is_enabled"`
	Targeting TargetingRequest `json:"targeting"`
}

// TargetingRequest mirrors the persisted targeting document. List order is
// meaningful and preserved as-is.
type TargetingRequest struct {
	DefaultVariationID string                      `json:"defaultVariationId,omitempty"`
	OffVariationID     string                      `json:"offVariationId,omitempty"`
	Individual         []IndividualOverrideRequest `json:"individual,omitempty" validate:"dive"`
	Segments           []SegmentRuleRequest        `json:"segments,omitempty" validate:"dive"`
	Rules              []AttributeRuleRequest      `json:"rules,omitempty" validate:"dive"`
}

// IndividualOverrideRequest pins a user to a variation
type IndividualOverrideRequest struct {
	UserID      string `json:"userId" validate:"required,min=1,max=100"`
	VariationID string `json:"variationId" validate:"required"`
}

// SegmentRuleRequest serves a variation to members of a segment
type SegmentRuleRequest struct {
	SegmentID   int64  `json:"segmentId" validate:"required,gt=0"`
	VariationID string `json:"variationId" validate:"required"`
}

// AttributeRuleRequest is a single attribute condition
type AttributeRuleRequest struct {
	ID          string `json:"id,omitempty"`
	Attribute   string `json:"attribute" validate:"required,min=1,max=100"`
	Operator    string `json:"operator" validate:"required,rule_operator"`
	Value       string `json:"value"`
	VariationID string `json:"variationId,omitempty"`
}

// ToEntity converts the targeting request into the persisted form,
// assigning IDs to rules that don't have one yet
func (r TargetingRequest) ToEntity() entity.Targeting {
	targeting := entity.Targeting{
		DefaultVariationID: r.DefaultVariationID,
		OffVariationID:     r.OffVariationID,
	}
	for _, override := range r.Individual {
		targeting.Individual = append(targeting.Individual, entity.IndividualOverride{
			UserID:      override.UserID,
			VariationID: override.VariationID,
		})
	}
	for _, segment := range r.Segments {
		targeting.Segments = append(targeting.Segments, entity.SegmentRule{
			SegmentID:   segment.SegmentID,
			VariationID: segment.VariationID,
		})
	}
	for _, rule := range r.Rules {
		id := rule.ID
		if id == "" {
			id = uuid.NewString()
		}
		targeting.Rules = append(targeting.Rules, entity.AttributeRule{
			ID:          id,
			Attribute:   rule.Attribute,
			Operator:    entity.RuleOperator(rule.Operator),
			Value:       rule.Value,
			VariationID: rule.VariationID,
		})
	}
	return targeting
}

// ValidateFlagCreateRequest validates a flag creation request
func ValidateFlagCreateRequest(req FlagCreateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateFlagUpdateRequest validates a flag update request
func ValidateFlagUpdateRequest(req FlagUpdateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateVariationRequest validates a variation create/update request
func ValidateVariationRequest(req VariationRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateFlagStateUpdateRequest validates a flag state update request
func ValidateFlagStateUpdateRequest(req FlagStateUpdateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}
