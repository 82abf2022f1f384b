package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const displayRegion = "PH"

var (
	reCanonicalMobile = regexp.MustCompile(`^\+639\d{9}$`)
	reDisplayMobile   = regexp.MustCompile(`^09\d{2} \d{3} \d{4}$`)
)

// NormalizeMobile converts a free-form mobile number into +639XXXXXXXXX.
// The second result is false when the input cannot be normalized.
func NormalizeMobile(raw string) (string, bool) {
	s := stripPhone(raw)

	switch {
	case strings.HasPrefix(s, "+"):
	case strings.HasPrefix(s, "09") && len(s) == 11:
		s = "+63" + s[1:]
	case strings.HasPrefix(s, "9") && len(s) == 10:
		s = "+63" + s
	case strings.HasPrefix(s, "639") && len(s) == 12:
		s = "+" + s
	}

	if !reCanonicalMobile.MatchString(s) {
		return "", false
	}
	return s, true
}

func IsMobile(raw string) bool {
	_, ok := NormalizeMobile(raw)
	return ok
}

// FormatMobile renders a number as 09XX XXX XXXX for display.
// Input that cannot be normalized is returned unchanged.
func FormatMobile(raw string) string {
	canonical, ok := NormalizeMobile(raw)
	if !ok {
		return raw
	}

	if num, err := phonenumbers.Parse(canonical, displayRegion); err == nil {
		if national := phonenumbers.Format(num, phonenumbers.NATIONAL); reDisplayMobile.MatchString(national) {
			return national
		}
	}

	local := "0" + canonical[3:]
	return local[:4] + " " + local[4:7] + " " + local[7:]
}

// stripPhone keeps digits and a single leading plus sign.
func stripPhone(raw string) string {
	raw = strings.TrimSpace(raw)

	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
