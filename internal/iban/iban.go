// Package iban validates IBANs per ISO 13616 and derives BICs for the
// Dutch banks the association deals with.
package iban

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/verenigingen/backend/internal/domain"
)

// Registered IBAN lengths for the countries members bank in. Countries not
// listed are still accepted if the checksum holds and the generic length
// bounds are met.
var countryLengths = map[string]int{
	"NL": 18,
	"BE": 16,
	"DE": 22,
	"FR": 27,
	"ES": 24,
	"IT": 27,
	"AT": 20,
	"LU": 20,
	"GB": 22,
}

// Dutch bank codes to BIC, per the banks' published identifiers.
var dutchBICs = map[string]string{
	"ABNA": "ABNANL2A",
	"RABO": "RABONL2U",
	"INGB": "INGBNL2A",
	"SNSB": "SNSBNL2A",
	"TRIO": "TRIONL2U",
	"BUNQ": "BUNQNL2A",
	"ASNB": "ASNBNL21",
}

var ninetySeven = big.NewInt(97)

// Normalize strips spaces and uppercases. It does not validate.
func Normalize(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
}

// Validate checks structure, country length, and the mod-97 checksum.
// Returns the normalized IBAN on success.
func Validate(raw string) (string, error) {
	iban := Normalize(raw)

	if len(iban) < 15 || len(iban) > 34 {
		return "", fmt.Errorf("iban length %d out of range: %w", len(iban), domain.ErrInvalidIBAN)
	}

	country := iban[:2]
	if !isAlpha(country) {
		return "", fmt.Errorf("iban must start with a country code: %w", domain.ErrInvalidIBAN)
	}
	if !isDigits(iban[2:4]) {
		return "", fmt.Errorf("iban check digits must be numeric: %w", domain.ErrInvalidIBAN)
	}
	for _, c := range iban[4:] {
		if !isAlphaNum(byte(c)) {
			return "", fmt.Errorf("iban contains invalid characters: %w", domain.ErrInvalidIBAN)
		}
	}

	if want, ok := countryLengths[country]; ok && len(iban) != want {
		return "", fmt.Errorf("%s iban must be %d characters: %w", country, want, domain.ErrInvalidIBAN)
	}

	if !checksumOK(iban) {
		return "", fmt.Errorf("iban checksum failed: %w", domain.ErrInvalidIBAN)
	}

	return iban, nil
}

// Format renders a normalized IBAN in the conventional 4-character groups.
func Format(iban string) string {
	iban = Normalize(iban)
	var b strings.Builder
	for i, c := range iban {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// DeriveBIC guesses the BIC from the IBAN's embedded bank code. Known Dutch
// banks resolve to their published BIC; other countries fall back to the
// generic bankcode+country+"X" form when the bank code is alphabetic.
// Returns "" when no sensible guess exists.
func DeriveBIC(raw string) string {
	iban := Normalize(raw)
	if len(iban) < 8 {
		return ""
	}

	country := iban[:2]
	bankCode := iban[4:8]

	if country == "NL" {
		if bic, ok := dutchBICs[bankCode]; ok {
			return bic
		}
	}

	if isAlpha(bankCode) {
		return bankCode + country + "X"
	}
	return ""
}

// ISO 13616: move the first four characters to the end, substitute A=10..Z=35,
// and the resulting integer mod 97 must equal 1.
func checksumOK(iban string) bool {
	rearranged := iban[4:] + iban[:4]

	var digits strings.Builder
	digits.Grow(len(rearranged) * 2)
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if c >= '0' && c <= '9' {
			digits.WriteByte(c)
		} else {
			fmt.Fprintf(&digits, "%d", c-'A'+10)
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, ninetySeven).Int64() == 1
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isAlphaNum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')
}
