package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is an ordered list of tokens persisted as JSON text.
type StringList []string

// FloatList is an ordered list of numbers persisted as JSON text.
type FloatList []float64

// ScoreMap maps a key (category) to a numeric score, persisted as JSON text.
type ScoreMap map[string]float64

// ScoreSheet maps assessment category to student ID to score.
type ScoreSheet map[string]map[string]float64

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return marshalText(l)
}

func (l *StringList) Scan(src interface{}) error {
	*l = StringList{}
	return unmarshalText(src, l)
}

func (l FloatList) Value() (driver.Value, error) {
	if l == nil {
		l = FloatList{}
	}
	return marshalText(l)
}

func (l *FloatList) Scan(src interface{}) error {
	*l = FloatList{}
	return unmarshalText(src, l)
}

func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		m = ScoreMap{}
	}
	return marshalText(m)
}

func (m *ScoreMap) Scan(src interface{}) error {
	*m = ScoreMap{}
	return unmarshalText(src, m)
}

func (s ScoreSheet) Value() (driver.Value, error) {
	if s == nil {
		s = ScoreSheet{}
	}
	return marshalText(s)
}

func (s *ScoreSheet) Scan(src interface{}) error {
	*s = ScoreSheet{}
	return unmarshalText(src, s)
}

// Count returns the number of entered scores across all categories.
func (s ScoreSheet) Count() int {
	total := 0
	for _, byStudent := range s {
		total += len(byStudent)
	}
	return total
}

func marshalText(v interface{}) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func unmarshalText(src interface{}, dest interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
