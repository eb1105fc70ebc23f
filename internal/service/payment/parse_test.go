package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInvoiceNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "INV-001", want: []string{"INV-001"}},
		{name: "two", input: "INV-001,INV-002", want: []string{"INV-001", "INV-002"}},
		{name: "whitespace trimmed", input: " INV-001 , INV-002 ", want: []string{"INV-001", "INV-002"}},
		{name: "empty segments dropped", input: "INV-001,,INV-002,", want: []string{"INV-001", "INV-002"}},
		{name: "only separators", input: ", ,,", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInvoiceNumbers(tt.input))
		})
	}
}
