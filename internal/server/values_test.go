package server

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"int scalar", "42", 42},
		{"zero", "0", 0},
		{"bool true", "true", true},
		{"bool mixed case", "False", false},
		{"float scalar", "3.14", 3.14},
		{"negative number is float", "-5", -5.0},
		{"string scalar", "hello", "hello"},
		{"quoted string", `"quoted"`, "quoted"},
		{"empty string", "", ""},
		{"int array", "1,2,3", []int{1, 2, 3}},
		{"float array", "1.5, 2, 3.25", []float64{1.5, 2, 3.25}},
		{"bool array", "true,false,true", []bool{true, false, true}},
		{"string array", "alpha, beta", []string{"alpha", "beta"}},
		{"quoted string array", `"a","b"`, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.raw)
			if err != nil {
				t.Fatalf("ParseValue(%q) error = %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseValue_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"int array with non-int", "1,abc"},
		{"bool array with non-bool", "true,maybe"},
		{"float array with non-float", "1.5,later"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValue(tt.raw)
			if err == nil {
				t.Fatalf("ParseValue(%q) should fail", tt.raw)
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("ParseValue(%q) error = %v, want ErrConfig", tt.raw, err)
			}
		})
	}
}
