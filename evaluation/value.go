package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"flagbase/entity"
)

var (
	// ErrInvalidVariationValue means a stored or proposed variation value
	// does not coerce to its declared type.
	ErrInvalidVariationValue = errors.New("invalid variation value")

	// ErrNoVariationAvailable means a flag has neither variations nor a
	// default value. This is a configuration error, not a transient one.
	ErrNoVariationAvailable = errors.New("no variation available")
)

// CoerceValue converts a string-encoded variation value into the Go value
// for its declared type. Values that do not satisfy the type yield
// ErrInvalidVariationValue.
func CoerceValue(flagType entity.FlagType, value string) (any, error) {
	switch flagType {
	case entity.FlagTypeBoolean:
		switch value {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidVariationValue, value)
	case entity.FlagTypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidVariationValue, value)
		}
		return n, nil
	case entity.FlagTypeJSON:
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			return nil, fmt.Errorf("%w: %q is not valid JSON", ErrInvalidVariationValue, value)
		}
		return parsed, nil
	default:
		// string and unset types pass through unchanged
		return value, nil
	}
}

// ValidateValue checks a candidate variation value against its declared
// type. Used at variation create/update time so bad values are rejected
// before they are persisted.
func ValidateValue(flagType entity.FlagType, value string) error {
	_, err := CoerceValue(flagType, value)
	return err
}
