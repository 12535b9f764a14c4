package langcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"NONE", "NONE"},
		{"en", "eng"},
		{"eng", "eng"},
		{"en-US", "eng"},
		{"English", "eng"},
		{"fr", "fre"},
		{"fra", "fre"},
		{"de", "ger"},
		{"  spa ", "spa"},
		{"not a language at all", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
