// Package format holds the display formatting and input validators shared by the forms.
package format

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern    = regexp.MustCompile(`^01[0-9]-?[0-9]{3,4}-?[0-9]{4}$`)
	leadPhonePattern = regexp.MustCompile(`^010-\d{4}-\d{4}$`)

	krPrinter = message.NewPrinter(language.Korean)
)

// KRW renders an amount in won the way ko-KR currency formatting does, e.g. ₩1,234,500.
func KRW(amount int64) string {
	if amount < 0 {
		return "-₩" + krPrinter.Sprintf("%d", -amount)
	}
	return "₩" + krPrinter.Sprintf("%d", amount)
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Phone groups a mobile number as 010-1234-5678 while it is being typed. Input with more
// than 11 digits is returned unchanged.
func Phone(input string) string {
	d := Digits(input)
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 7:
		return d[:3] + "-" + d[3:]
	case len(d) <= 11:
		return d[:3] + "-" + d[3:7] + "-" + d[7:]
	default:
		return input
	}
}

// BusinessNumber groups a business registration number as 123-45-67890. Input with more
// than 10 digits is returned unchanged.
func BusinessNumber(input string) string {
	d := Digits(input)
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 5:
		return d[:3] + "-" + d[3:]
	case len(d) <= 10:
		return d[:3] + "-" + d[3:5] + "-" + d[5:]
	default:
		return input
	}
}

// IsEmail applies the loose something@something.tld check used on every form.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsMobile reports whether s is a Korean mobile number, with or without dashes.
func IsMobile(s string) bool {
	return mobilePattern.MatchString(strings.ReplaceAll(s, "-", ""))
}

// IsLeadPhone enforces the strict 010-0000-0000 shape of the lead form.
func IsLeadPhone(s string) bool {
	return leadPhonePattern.MatchString(s)
}

// IsURL reports whether s parses as an absolute URL. Web schemes also need a host.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp", "ws", "wss":
		return u.Host != ""
	default:
		return u.Opaque != "" || u.Host != "" || u.Path != ""
	}
}
