package payment

import "strings"

// ParseInvoiceNumbers splits the mutation's delimited invoice-number string.
// Segments are comma-separated; whitespace is trimmed and empty segments
// dropped. An empty input yields nil.
func ParseInvoiceNumbers(s string) []string {
	if s == "" {
		return nil
	}

	var numbers []string
	for _, seg := range strings.Split(s, ",") {
		if seg = strings.TrimSpace(seg); seg != "" {
			numbers = append(numbers, seg)
		}
	}
	return numbers
}
