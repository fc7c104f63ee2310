package errors

import (
	"strings"
	"testing"
)

func TestValidateFactoryID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid urn", "urn:ngsi-ld:factories:2023:1", false},
		{"valid short", "F1", false},
		{"valid with dash", "plant-north", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"path traversal", "a..b", true},
		{"slash", "a/b", true},
		{"query", "a?b=c", true},
		{"space", "a b", true},
		{"null byte", "a\x00b", true},
		{"newline", "a\nb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFactoryID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFactoryID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateFactoryID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateRelationName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"has filter", "hasFilter", false},
		{"has cutter", "hasCutter", false},
		{"empty", "", true},
		{"underscore", "has_filter", true},
		{"leading digit", "1has", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelationName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRelationName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://api.example.com", false},
		{"http", "http://localhost:4000", false},
		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
