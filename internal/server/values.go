package server

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseValue converts a declared variable value to a typed protocol value.
//
// Values are written as strings in the configuration; the element type is
// inferred from the first comma-separated element:
//
//	digits only                 -> int
//	"true" / "false"            -> bool
//	parseable as a number       -> float64
//	anything else               -> string
//
// A single element yields a scalar, multiple elements a 1-D slice of the
// inferred type. Elements may be wrapped in double quotes. An element
// that cannot be converted to the inferred type returns an error wrapping
// ErrConfig.
func ParseValue(raw string) (any, error) {
	elems := strings.Split(raw, ",")
	for i, e := range elems {
		elems[i] = strings.Trim(strings.TrimSpace(e), `"`)
	}

	switch inferType(elems[0]) {
	case "int":
		vals := make([]int, len(elems))
		for i, e := range elems {
			v, err := strconv.Atoi(e)
			if err != nil {
				return nil, fmt.Errorf("%w: element %q is not an int", ErrConfig, e)
			}
			vals[i] = v
		}
		if len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil

	case "bool":
		vals := make([]bool, len(elems))
		for i, e := range elems {
			v, err := strconv.ParseBool(strings.ToLower(e))
			if err != nil {
				return nil, fmt.Errorf("%w: element %q is not a bool", ErrConfig, e)
			}
			vals[i] = v
		}
		if len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil

	case "float":
		vals := make([]float64, len(elems))
		for i, e := range elems {
			v, err := strconv.ParseFloat(e, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: element %q is not a float", ErrConfig, e)
			}
			vals[i] = v
		}
		if len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil

	default:
		if len(elems) == 1 {
			return elems[0], nil
		}
		return elems, nil
	}
}

// inferType classifies one element. Only unsigned digit strings count as
// int; signed and fractional numbers fall through to float.
func inferType(elem string) string {
	if elem != "" && isDigits(elem) {
		return "int"
	}
	switch strings.ToLower(elem) {
	case "true", "false":
		return "bool"
	}
	if _, err := strconv.ParseFloat(elem, 64); err == nil {
		return "float"
	}
	return "string"
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
