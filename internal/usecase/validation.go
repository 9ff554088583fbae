package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minAddressLength = 5

var deliveryTimePattern = regexp.MustCompile(`(?i)(today|tomorrow|сегодня|завтра)?\s*([0-2]?\d:[0-5]\d)`)

// NormalizeAddress trims address and reports whether it is detailed enough.
func NormalizeAddress(raw string) (string, bool) {
	addr := strings.Join(strings.Fields(raw), " ")
	return addr, utf8.RuneCountInString(addr) >= minAddressLength
}

// NormalizeDeliveryTime trims requested time and reports whether it contains HH:MM,
// optionally prefixed with a day word.
func NormalizeDeliveryTime(raw string) (string, bool) {
	value := strings.Join(strings.Fields(raw), " ")
	m := deliveryTimePattern.FindStringSubmatch(value)
	if m == nil {
		return value, false
	}
	var hour int
	for _, r := range strings.SplitN(m[2], ":", 2)[0] {
		hour = hour*10 + int(r-'0')
	}
	return value, hour < 24
}
