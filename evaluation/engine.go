// Package evaluation resolves which variation value a feature flag serves
// for a given context. It is a pure computation over the flag, its
// per-environment state and the project's segments: no I/O, no shared
// state, safe for concurrent use.
package evaluation

import (
	"flagbase/entity"
)

// Evaluation reasons, reported in the Result so callers can tell which
// branch of the resolution order produced the value.
const (
	ReasonOff          = "OFF"
	ReasonIndividual   = "INDIVIDUAL_OVERRIDE"
	ReasonSegmentMatch = "SEGMENT_MATCH"
	ReasonRuleMatch    = "RULE_MATCH"
	ReasonDefault      = "DEFAULT"
	ReasonDefaultValue = "DEFAULT_VALUE"
)

// Result is the outcome of a single evaluation. VariationID is empty when
// the literal default value was served because the flag has no variations.
type Result struct {
	FlagKey     string `json:"flag_key"`
	VariationID string `json:"variation_id,omitempty"`
	Value       any    `json:"value"`
	Reason      string `json:"reason"`
}

// Evaluate resolves the variation value flag serves for ctx.
//
// Resolution order, first match wins:
//  1. disabled (or missing state): off variation, then the variation whose
//     value equals the flag's default value, then the first variation,
//     then the literal default value
//  2. individual overrides by user identifier
//  3. segment rules in list order, each segment's rules AND-combined
//  4. attribute rules in list order, each an independent condition
//  5. the default variation, with the same fallback chain as step 1
//
// Targeting entries referencing unknown variations or segments are
// skipped rather than failing the evaluation.
func Evaluate(flag *entity.FeatureFlag, state *entity.FlagState, segments []*entity.Segment, ctx Context) (*Result, error) {
	targeting := entity.Targeting{}
	enabled := false
	if state != nil {
		targeting = state.Rules.Targeting
		enabled = state.IsEnabled
	}

	if !enabled {
		return resolveVariation(flag, targeting.OffVariationID, ReasonOff)
	}

	if userID := ctx.UserID(); userID != "" {
		for _, override := range targeting.Individual {
			if override.UserID != userID {
				continue
			}
			if result, ok := serveVariation(flag, override.VariationID, ReasonIndividual); ok {
				return result, nil
			}
		}
	}

	for _, segmentRule := range targeting.Segments {
		segment := findSegment(segments, segmentRule.SegmentID)
		if segment == nil {
			continue
		}
		if !matchSegment(segment, ctx) {
			continue
		}
		if result, ok := serveVariation(flag, segmentRule.VariationID, ReasonSegmentMatch); ok {
			return result, nil
		}
	}

	for _, rule := range targeting.Rules {
		if !matchRule(rule, ctx) {
			continue
		}
		if result, ok := serveVariation(flag, rule.VariationID, ReasonRuleMatch); ok {
			return result, nil
		}
	}

	return resolveVariation(flag, targeting.DefaultVariationID, ReasonDefault)
}

// serveVariation builds a result for a referenced variation. Returns
// ok=false when the reference does not resolve, so the caller moves on.
func serveVariation(flag *entity.FeatureFlag, variationID, reason string) (*Result, bool) {
	if variationID == "" {
		return nil, false
	}
	variation := flag.VariationByID(variationID)
	if variation == nil {
		return nil, false
	}

	value, err := CoerceValue(flag.VariationType(*variation), variation.Value)
	if err != nil {
		// A matched rule pointing at a corrupt variation is treated like
		// an unresolved reference: skip it and keep evaluating.
		return nil, false
	}

	return &Result{
		FlagKey:     flag.Key,
		VariationID: variation.ID,
		Value:       value,
		Reason:      reason,
	}, true
}

// resolveVariation applies the shared fallback chain used by both the off
// path and the default path.
func resolveVariation(flag *entity.FeatureFlag, variationID, reason string) (*Result, error) {
	if result, ok := serveVariation(flag, variationID, reason); ok {
		return result, nil
	}

	for _, variation := range flag.Variations {
		if variation.Value == flag.DefaultValue {
			if result, ok := serveVariation(flag, variation.ID, reason); ok {
				return result, nil
			}
		}
	}

	if len(flag.Variations) > 0 {
		first := flag.Variations[0]
		value, err := CoerceValue(flag.VariationType(first), first.Value)
		if err != nil {
			return nil, err
		}
		return &Result{
			FlagKey:     flag.Key,
			VariationID: first.ID,
			Value:       value,
			Reason:      reason,
		}, nil
	}

	if flag.DefaultValue != "" {
		value, err := CoerceValue(flag.Type, flag.DefaultValue)
		if err != nil {
			return nil, err
		}
		return &Result{
			FlagKey: flag.Key,
			Value:   value,
			Reason:  ReasonDefaultValue,
		}, nil
	}

	return nil, ErrNoVariationAvailable
}

func findSegment(segments []*entity.Segment, id int64) *entity.Segment {
	for _, segment := range segments {
		if segment != nil && segment.ID == id {
			return segment
		}
	}
	return nil
}
