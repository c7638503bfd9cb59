package validator

import (
	"flagbase/entity"

	"github.com/google/uuid"
)

// SegmentCreateRequest represents the request payload for creating a segment
type SegmentCreateRequest struct {
	Key         string                 `json:"key" validate:"required,resource_key,min=2,max=100"`
	Name        string                 `json:"name" validate:"required,min=2,max=100"`
	Description string                 `json:"description,omitempty" validate:"max=500"`
	Rules       []AttributeRuleRequest `json:"rules,omitempty" validate:"dive"`
}

// SegmentUpdateRequest represents the request payload for updating a segment
type SegmentUpdateRequest struct {
	Name        string                 `json:"name" validate:"required,min=2,max=100"`
	Description string                 `json:"description,omitempty" validate:"max=500"`
	Rules       []AttributeRuleRequest `json:"rules,omitempty" validate:"dive"`
}

// SegmentRulesToEntity converts membership rules into the persisted form.
// Segment rules carry no variation reference; membership only decides
// matching.
func SegmentRulesToEntity(rules []AttributeRuleRequest) entity.SegmentRules {
	var out entity.SegmentRules
	for _, rule := range rules {
		id := rule.ID
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, entity.AttributeRule{
			ID:        id,
			Attribute: rule.Attribute,
			Operator:  entity.RuleOperator(rule.Operator),
			Value:     rule.Value,
		})
	}
	return out
}

// ValidateSegmentCreateRequest validates a segment creation request
func ValidateSegmentCreateRequest(req SegmentCreateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateSegmentUpdateRequest validates a segment update request
func ValidateSegmentUpdateRequest(req SegmentUpdateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}
