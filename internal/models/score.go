package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Score bounds on the 20-point scale.
const (
	MinScore     = 0.0
	MaxScore     = 20.0
	PassingScore = 10.0
	// UngradedInput is accepted from clients to clear a recorded grade.
	UngradedInput = -1.0
)

// ErrInvalidScore is returned for values outside [0, 20] other than -1.
var ErrInvalidScore = errors.New("score must be between 0 and 20, or -1 to clear the grade")

// Score is either a graded value in [0, 20] or ungraded.
// The zero value is ungraded.
type Score struct {
	points float64
	graded bool
}

// Ungraded returns the score of an enrollment with no grade recorded.
func Ungraded() Score {
	return Score{}
}

// Graded returns a graded score. Callers validating user input should use ParseScore.
func Graded(points float64) Score {
	return Score{points: points, graded: true}
}

// ParseScore converts a client-supplied number, where -1 means ungraded.
func ParseScore(v float64) (Score, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return Score{}, ErrInvalidScore
	case v == UngradedInput:
		return Ungraded(), nil
	case v < MinScore || v > MaxScore:
		return Score{}, ErrInvalidScore
	}
	return Graded(v), nil
}

// IsGraded reports whether a grade has been recorded.
func (s Score) IsGraded() bool {
	return s.graded
}

// Points returns the grade and whether one is recorded.
func (s Score) Points() (float64, bool) {
	return s.points, s.graded
}

// Passed reports a graded score at or above the passing mark.
func (s Score) Passed() bool {
	return s.graded && s.points >= PassingScore
}

func (s Score) String() string {
	if !s.graded {
		return "ungraded"
	}
	return strconv.FormatFloat(s.points, 'f', -1, 64)
}

// Value stores ungraded scores as NULL.
func (s Score) Value() (driver.Value, error) {
	if !s.graded {
		return nil, nil
	}
	return s.points, nil
}

// Scan reads a nullable numeric column.
func (s *Score) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = Ungraded()
	case float64:
		*s = Graded(v)
	case float32:
		*s = Graded(float64(v))
	case int64:
		*s = Graded(float64(v))
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("scan score: %w", err)
		}
		*s = Graded(f)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("scan score: %w", err)
		}
		*s = Graded(f)
	default:
		return fmt.Errorf("unsupported type %T for Score", value)
	}
	return nil
}

// MarshalJSON renders ungraded scores as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.graded {
		return []byte("null"), nil
	}
	return json.Marshal(s.points)
}

// UnmarshalJSON accepts null, -1 or a number in [0, 20].
func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Ungraded()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseScore(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
