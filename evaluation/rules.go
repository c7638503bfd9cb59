package evaluation

import (
	"strings"

	"flagbase/entity"
)

// UserIDAttribute is the context key holding the user identifier used by
// individual overrides.
const UserIDAttribute = "userId"

// Context describes the entity a flag is being evaluated for: an arbitrary
// string-keyed attribute mapping, optionally including a user identifier.
type Context map[string]string

// UserID returns the user identifier attribute, if present
func (c Context) UserID() string {
	return c[UserIDAttribute]
}

// matchRule evaluates a single attribute rule against the context.
// A missing attribute never matches, and an unknown operator fails closed.
func matchRule(rule entity.AttributeRule, ctx Context) bool {
	actual, ok := ctx[rule.Attribute]
	if !ok {
		return false
	}

	switch rule.Operator {
	case entity.OperatorEquals:
		return actual == rule.Value
	case entity.OperatorNotEquals:
		return actual != rule.Value
	case entity.OperatorContains:
		return strings.Contains(actual, rule.Value)
	case entity.OperatorNotContains:
		return !strings.Contains(actual, rule.Value)
	case entity.OperatorStartsWith:
		return strings.HasPrefix(actual, rule.Value)
	case entity.OperatorEndsWith:
		return strings.HasSuffix(actual, rule.Value)
	default:
		return false
	}
}

// matchSegment reports whether the context is a member of the segment.
// All rules combine with AND; a segment without rules has no members.
func matchSegment(segment *entity.Segment, ctx Context) bool {
	if segment == nil || len(segment.Rules) == 0 {
		return false
	}
	for _, rule := range segment.Rules {
		if !matchRule(rule, ctx) {
			return false
		}
	}
	return true
}
