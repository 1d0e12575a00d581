// Package format normalises phone and national ID input as it is typed.
package format

import (
	"errors"
	"regexp"
	"strings"
)

const (
	PhoneDigits      = 8
	NationalIDDigits = 9

	// PhoneLength и NationalIDLength длины канонических значений с дефисом
	PhoneLength      = PhoneDigits + 1
	NationalIDLength = NationalIDDigits + 1
)

var (
	PhonePattern      = regexp.MustCompile(`^\d{4}-\d{4}$`)
	NationalIDPattern = regexp.MustCompile(`^\d{8}-\d$`)

	ErrPhoneFormat      = errors.New("invalid phone format, expected NNNN-NNNN")
	ErrNationalIDFormat = errors.New("invalid national id format, expected NNNNNNNN-N")
)

// Phone strips non-digits, keeps at most 8 and inserts a hyphen after the 4th digit.
func Phone(raw string) string {
	return hyphenate(digits(raw, PhoneDigits), 4)
}

// NationalID strips non-digits, keeps at most 9 and inserts a hyphen after the 8th digit.
func NationalID(raw string) string {
	return hyphenate(digits(raw, NationalIDDigits), 8)
}

// CheckPhone validates value only once it has reached the canonical length.
// Shorter values are accepted so that partial input does not raise an error while typing.
func CheckPhone(value string) error {
	if len(value) < PhoneLength {
		return nil
	}
	if !PhonePattern.MatchString(value) {
		return ErrPhoneFormat
	}
	return nil
}

// CheckNationalID is the national ID counterpart of CheckPhone.
func CheckNationalID(value string) error {
	if len(value) < NationalIDLength {
		return nil
	}
	if !NationalIDPattern.MatchString(value) {
		return ErrNationalIDFormat
	}
	return nil
}

func digits(raw string, limit int) string {
	var b strings.Builder
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		if b.Len() == limit {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hyphenate(d string, at int) string {
	if len(d) <= at {
		return d
	}
	return d[:at] + "-" + d[at:]
}
