package format

import (
	"strings"
	"testing"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "empty", raw: "", expected: ""},
		{name: "four_digits", raw: "7012", expected: "7012"},
		{name: "five_digits", raw: "70123", expected: "7012-3"},
		{name: "full", raw: "70123456", expected: "7012-3456"},
		{name: "already_formatted", raw: "7012-3456", expected: "7012-3456"},
		{name: "truncated", raw: "7012345678", expected: "7012-3456"},
		{name: "letters_and_spaces", raw: "70a1 2-34b56", expected: "7012-3456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Phone(tt.raw); got != tt.expected {
				t.Errorf("expected '%s', but got '%s'", tt.expected, got)
			}
		})
	}
}

func TestNationalID(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "eight_digits", raw: "12345678", expected: "12345678"},
		{name: "full", raw: "123456789", expected: "12345678-9"},
		{name: "truncated", raw: "1234567890123", expected: "12345678-9"},
		{name: "mixed", raw: "1234-5678-9", expected: "12345678-9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NationalID(tt.raw); got != tt.expected {
				t.Errorf("expected '%s', but got '%s'", tt.expected, got)
			}
		})
	}
}

func TestCheckPhoneDefersUntilFullLength(t *testing.T) {
	// Любое значение короче канонической длины проходит проверку формата
	partial := []string{"", "1", "abc", "12-4", "xxxx-xx", "1234-567"}
	for _, v := range partial {
		if err := CheckPhone(v); err != nil {
			t.Errorf("expected no error for partial value '%s', but got %v", v, err)
		}
	}

	if err := CheckPhone("1234-5678"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, v := range []string{"12345-678", "abcd-efgh", "123456789"} {
		if err := CheckPhone(v); err != ErrPhoneFormat {
			t.Errorf("expected ErrPhoneFormat for '%s', but got %v", v, err)
		}
	}
}

func TestCheckNationalID(t *testing.T) {
	if err := CheckNationalID("1234567"); err != nil {
		t.Errorf("unexpected error for partial value: %v", err)
	}
	if err := CheckNationalID("12345678-9"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, v := range []string{"1234567-89", "1234567890", "abcdefgh-i"} {
		if err := CheckNationalID(v); err != ErrNationalIDFormat {
			t.Errorf("expected ErrNationalIDFormat for '%s', but got %v", v, err)
		}
	}
}

func TestFormattedValuesAlwaysPassCheck(t *testing.T) {
	inputs := []string{"", "9", "99999999999", "12ab34cd56ef78", strings.Repeat("5", 20)}
	for _, in := range inputs {
		if err := CheckPhone(Phone(in)); err != nil {
			t.Errorf("formatted phone from '%s' failed check: %v", in, err)
		}
		if err := CheckNationalID(NationalID(in)); err != nil {
			t.Errorf("formatted national id from '%s' failed check: %v", in, err)
		}
	}
}
