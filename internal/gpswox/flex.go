package gpswox

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexFloat decodes a JSON number or numeric string. Anything else (null,
// booleans, objects, garbage) leaves it invalid rather than failing the
// whole payload.
type FlexFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid FlexFloat.
func Float(v float64) FlexFloat { return FlexFloat{Value: v, Valid: true} }

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	*f = FlexFloat{}
	v, ok := parseNumber(b)
	if ok {
		*f = FlexFloat{Value: v, Valid: true}
	}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns nil for an invalid value.
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// parseNumber coerces a raw JSON value to a finite float64.
func parseNumber(raw []byte) (float64, bool) {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0, false
	}
	switch b[0] {
	case 'n', 't', 'f', '{', '[':
		return 0, false
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FlexString decodes a JSON string or number into a string. Ids come back
// as either depending on the provider build.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	*s = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		*s = FlexString(str)
	case 'n', 't', 'f', '{', '[':
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			*s = FlexString(n.String())
		}
	}
	return nil
}

func (s FlexString) String() string { return string(s) }
