package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInsufficientData is returned when a regression has fewer than two
	// distinct x values. Callers substitute neutral defaults.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidParameter matches every InvalidParameterError via errors.Is.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrEmptyResult signals that no event matched a query's filters.
	ErrEmptyResult = errors.New("empty result")
)

// InvalidParameterError describes a caller-supplied parameter that is out of
// range. It is surfaced immediately by every analytics entry point.
type InvalidParameterError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Param, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidParameter) succeed.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// NewInvalidParameter builds an InvalidParameterError.
func NewInvalidParameter(param string, value any, reason string) error {
	return &InvalidParameterError{Param: param, Value: value, Reason: reason}
}

// RequirePositive returns an InvalidParameterError when v is not a finite
// positive number.
func RequirePositive[T int | float64](param string, v T) error {
	if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
		return NewInvalidParameter(param, v, "must be finite")
	}
	if v <= 0 {
		return NewInvalidParameter(param, v, "must be positive")
	}
	return nil
}

// ValidateCoordinate checks that lat/lng lie in the WGS-84 range.
func ValidateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return NewInvalidParameter("lat", lat, "must be between -90 and 90")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return NewInvalidParameter("lng", lng, "must be between -180 and 180")
	}
	return nil
}
