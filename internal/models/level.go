package models

import "strings"

// Level is the ordinal academic year shared by students and courses.
type Level string

// Levels in ascending order.
const (
	LevelP1  Level = "P1"
	LevelP2  Level = "P2"
	LevelP3  Level = "P3"
	LevelB1  Level = "B1"
	LevelB2  Level = "B2"
	LevelB3  Level = "B3"
	LevelA1  Level = "A1"
	LevelA2  Level = "A2"
	LevelA3  Level = "A3"
	LevelMS  Level = "MS"
	LevelPhD Level = "PhD"
)

var levelOrder = []Level{
	LevelP1, LevelP2, LevelP3,
	LevelB1, LevelB2, LevelB3,
	LevelA1, LevelA2, LevelA3,
	LevelMS, LevelPhD,
}

var levelNames = map[Level]string{
	LevelP1:  "Prépa 1",
	LevelP2:  "Prépa 2",
	LevelP3:  "Prépa 3",
	LevelB1:  "Bachelor 1",
	LevelB2:  "Bachelor 2",
	LevelB3:  "Bachelor 3",
	LevelA1:  "Advanced 1",
	LevelA2:  "Advanced 2",
	LevelA3:  "Advanced 3",
	LevelMS:  "Master",
	LevelPhD: "Doctorate",
}

// Levels returns every level in ordinal order.
func Levels() []Level {
	out := make([]Level, len(levelOrder))
	copy(out, levelOrder)
	return out
}

// ParseLevel accepts the level code case-insensitively.
func ParseLevel(raw string) (Level, bool) {
	raw = strings.TrimSpace(raw)
	for _, lvl := range levelOrder {
		if strings.EqualFold(string(lvl), raw) {
			return lvl, true
		}
	}
	return "", false
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// Ordinal returns the position of l on the academic scale, or -1.
func (l Level) Ordinal() int {
	for i, lvl := range levelOrder {
		if lvl == l {
			return i
		}
	}
	return -1
}

// DisplayName is the human-readable label for the level.
func (l Level) DisplayName() string {
	return levelNames[l]
}

// Gender of a student.
type Gender string

const (
	GenderMale         Gender = "Male"
	GenderFemale       Gender = "Female"
	GenderNotConcerned Gender = "NotConcerned"
)

// Valid reports whether g is a known gender value.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderNotConcerned:
		return true
	}
	return false
}
