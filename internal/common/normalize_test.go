package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeForMatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "uppercases", input: "rewe markt", want: "REWE MARKT"},
		{name: "strips accents", input: "Saúde e Farmácia", want: "SAUDE E FARMACIA"},
		{name: "collapses whitespace", input: "  NETFLIX \t  COM\n", want: "NETFLIX COM"},
		{name: "umlauts", input: "Überweisung Gebühr", want: "UBERWEISUNG GEBUHR"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeForMatch(tt.input))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpaces("  a   b\tc  "))
	assert.Empty(t, CollapseSpaces("   "))
}
