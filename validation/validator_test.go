package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" validate:"required,max=5"`
	Count int    `json:"count" validate:"gte=0,lte=10"`
	Kind  string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        sample
		wantField string
		wantMsg   string
	}{
		{"valid", sample{Name: "bob", Count: 3}, "", ""},
		{"missing name", sample{Count: 1}, "name", "name is required"},
		{"too long", sample{Name: "abcdefg"}, "name", "name must be at most 5"},
		{"count too high", sample{Name: "a", Count: 11}, "count", "count must be less than or equal to 10"},
		{"bad kind", sample{Name: "a", Kind: "z"}, "kind", "kind must be one of: a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateStruct() = %v, want *Error", err)
			}
			if verr.Fields[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Fields[0].Field, tt.wantField)
			}
			if verr.Fields[0].Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", verr.Fields[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	var s sample
	if err := DecodeAndValidate(nil, &s); err == nil {
		t.Error("empty body should fail")
	}
	if err := DecodeAndValidate([]byte("{not json"), &s); err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("bad JSON error = %v", err)
	}
	if err := DecodeAndValidate([]byte(`{"name":"ok","count":2}`), &s); err != nil {
		t.Errorf("valid body error = %v", err)
	}
	if s.Name != "ok" || s.Count != 2 {
		t.Errorf("decoded = %+v", s)
	}
}
