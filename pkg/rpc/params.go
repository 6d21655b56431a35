package rpc

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind names the JSON shape a parameter is expected to have.
type Kind string

const (
	KindString      Kind = "string"
	KindStringArray Kind = "array of strings"
	KindNumber      Kind = "number"
	KindObject      Kind = "object"
)

// ParamError reports the first parameter that failed validation.
type ParamError struct {
	Field  string
	Kind   Kind
	Reason string
}

func (e *ParamError) Error() string {
	return "Invalid params: " + e.Field + " " + e.Reason
}

// Decoder is implemented by per-method parameter structs.
type Decoder interface {
	DecodeParams(Params) error
}

// Params is a request's parameter object, decoded once into its members.
type Params struct {
	fields map[string]json.RawMessage
}

// ParseParams accepts an absent/null params value as an empty object and
// rejects anything that is not a JSON object.
func ParseParams(raw json.RawMessage) (Params, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Params{}, nil
	}
	if trimmed[0] != '{' {
		return Params{}, &ParamError{Field: "params", Kind: KindObject, Reason: "must be an object"}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Params{}, &ParamError{Field: "params", Kind: KindObject, Reason: "must be an object"}
	}
	return Params{fields: fields}, nil
}

// Has reports whether field is present, including an explicit null.
func (p Params) Has(field string) bool {
	_, ok := p.fields[field]
	return ok
}

// Len returns the number of members.
func (p Params) Len() int {
	return len(p.fields)
}

// String returns field as a string.
func (p Params) String(field string) (string, error) {
	raw, ok := p.fields[field]
	if !ok || leading(raw) != '"' {
		return "", &ParamError{Field: field, Kind: KindString, Reason: "is not a string"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &ParamError{Field: field, Kind: KindString, Reason: "is not a string"}
	}
	return s, nil
}

// Strings returns field as a list of strings. Every element is checked
// before anything is returned, so callers never see a partial list. A
// non-string element is reported as "<element> within array".
func (p Params) Strings(field, element string) ([]string, error) {
	raw, ok := p.fields[field]
	if !ok || leading(raw) != '[' {
		return nil, &ParamError{Field: field, Kind: KindStringArray, Reason: "must be an array"}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &ParamError{Field: field, Kind: KindStringArray, Reason: "must be an array"}
	}
	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		var s string
		if leading(elem) != '"' || json.Unmarshal(elem, &s) != nil {
			return nil, &ParamError{Field: element + " within array", Kind: KindString, Reason: "is not a string"}
		}
		out = append(out, s)
	}
	return out, nil
}

// Number returns field as a float64.
func (p Params) Number(field string) (float64, error) {
	raw, ok := p.fields[field]
	if !ok || !isNumberStart(leading(raw)) {
		return 0, &ParamError{Field: field, Kind: KindNumber, Reason: "must be numeric"}
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, &ParamError{Field: field, Kind: KindNumber, Reason: "must be numeric"}
	}
	return n, nil
}

// IntIn returns field as an int restricted to the closed set allowed.
// Non-integral numbers are outside every set.
func (p Params) IntIn(field string, allowed ...int) (int, error) {
	n, err := p.Number(field)
	if err != nil {
		return 0, err
	}
	if n == math.Trunc(n) {
		for _, v := range allowed {
			if float64(v) == n {
				return v, nil
			}
		}
	}
	return 0, &ParamError{Field: field, Kind: KindNumber, Reason: "must be " + joinAlternatives(allowed)}
}

// Object returns field as a nested parameter object.
func (p Params) Object(field string) (Params, error) {
	raw, ok := p.fields[field]
	if !ok || leading(raw) != '{' {
		return Params{}, &ParamError{Field: field, Kind: KindObject, Reason: "must be an object"}
	}
	nested, err := ParseParams(raw)
	if err != nil {
		return Params{}, &ParamError{Field: field, Kind: KindObject, Reason: "must be an object"}
	}
	return nested, nil
}

func leading(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isNumberStart(b byte) bool {
	return b == '-' || (b >= '0' && b <= '9')
}

func joinAlternatives(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	switch len(parts) {
	case 0:
		return "one of ()"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " or " + parts[len(parts)-1]
	}
}
