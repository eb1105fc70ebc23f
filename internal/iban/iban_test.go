package iban

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verenigingen/backend/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "valid NL rabobank", input: "NL39RABO0300065264", want: "NL39RABO0300065264"},
		{name: "valid NL ing", input: "NL91ABNA0417164300", want: "NL91ABNA0417164300"},
		{name: "valid with spaces lowercase", input: "nl91 abna 0417 1643 00", want: "NL91ABNA0417164300"},
		{name: "valid BE", input: "BE68539007547034", want: "BE68539007547034"},
		{name: "valid DE", input: "DE89370400440532013000", want: "DE89370400440532013000"},
		{name: "checksum off by one", input: "NL39RABO0300065265", wantErr: true},
		{name: "wrong length for NL", input: "NL39RABO030006526", wantErr: true},
		{name: "too short", input: "NL39RABO", wantErr: true},
		{name: "digits in country code", input: "1L39RABO0300065264", wantErr: true},
		{name: "letters in check digits", input: "NLXXRABO0300065264", wantErr: true},
		{name: "invalid characters", input: "NL39RABO03000652!4", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidIBAN)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "NL39 RABO 0300 0652 64", Format("NL39RABO0300065264"))
	assert.Equal(t, "BE68 5390 0754 7034", Format("be68 5390 0754 7034"))
}

func TestDeriveBIC(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "rabobank", input: "NL39RABO0300065264", want: "RABONL2U"},
		{name: "ing", input: "NL43INGB0123456789", want: "INGBNL2A"},
		{name: "triodos", input: "NL02TRIO0123456789", want: "TRIONL2U"},
		{name: "bunq", input: "NL12BUNQ0123456789", want: "BUNQNL2A"},
		{name: "unknown NL bank falls back", input: "NL00FAKE0123456789", want: "FAKENLX"},
		{name: "belgian alphabetic bank code", input: "BE68GEBA7547034111", want: "GEBABEX"},
		{name: "numeric bank code yields nothing", input: "BE68539007547034", want: ""},
		{name: "too short", input: "NL39", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveBIC(tt.input))
		})
	}
}
