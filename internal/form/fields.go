package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"investor_onboarding/internal/format"
	"investor_onboarding/internal/model"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrFieldValue   = errors.New("invalid field value")
)

type setter func(p *model.SubmissionPayload, raw string) error

// Реестр полей: имя из JSON -> функция записи с форматированием
var fields = map[string]setter{
	"fullName":   text(func(p *model.SubmissionPayload) *string { return &p.FullName }),
	"nationalId": formatted(func(p *model.SubmissionPayload) *string { return &p.NationalID }, format.NationalID),
	"phone":      formatted(func(p *model.SubmissionPayload) *string { return &p.Phone }, format.Phone),
	"email":      text(func(p *model.SubmissionPayload) *string { return &p.Email }),

	"bankName":      text(func(p *model.SubmissionPayload) *string { return &p.BankName }),
	"customBank":    text(func(p *model.SubmissionPayload) *string { return &p.CustomBank }),
	"accountNumber": text(func(p *model.SubmissionPayload) *string { return &p.AccountNumber }),
	"accountType": func(p *model.SubmissionPayload, raw string) error {
		p.AccountType = model.AccountType(strings.ToLower(strings.TrimSpace(raw)))
		return nil
	},

	"hasBeneficiaries": func(p *model.SubmissionPayload, raw string) error {
		v, err := parseBool(raw)
		if err != nil {
			return err
		}
		p.HasBeneficiaries = v
		if !v {
			p.Beneficiary1Name, p.Beneficiary1Phone, p.Beneficiary1Instagram = "", "", ""
			p.Beneficiary2Name, p.Beneficiary2Phone, p.Beneficiary2Instagram = "", "", ""
		}
		return nil
	},
	"beneficiary1Name":      text(func(p *model.SubmissionPayload) *string { return &p.Beneficiary1Name }),
	"beneficiary1Phone":     formatted(func(p *model.SubmissionPayload) *string { return &p.Beneficiary1Phone }, format.Phone),
	"beneficiary1Instagram": text(func(p *model.SubmissionPayload) *string { return &p.Beneficiary1Instagram }),
	"beneficiary2Name":      text(func(p *model.SubmissionPayload) *string { return &p.Beneficiary2Name }),
	"beneficiary2Phone":     formatted(func(p *model.SubmissionPayload) *string { return &p.Beneficiary2Phone }, format.Phone),
	"beneficiary2Instagram": text(func(p *model.SubmissionPayload) *string { return &p.Beneficiary2Instagram }),

	"isPoliticallyExposed": func(p *model.SubmissionPayload, raw string) error {
		v, err := parseBool(raw)
		if err != nil {
			return err
		}
		p.IsPoliticallyExposed = v
		if !v {
			p.ExposedPosition = ""
		}
		return nil
	},
	"exposedPosition": text(func(p *model.SubmissionPayload) *string { return &p.ExposedPosition }),

	"investmentAmount": func(p *model.SubmissionPayload, raw string) error {
		raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
		if raw == "" {
			p.InvestmentAmount = decimal.Zero
			return nil
		}
		v, err := decimal.NewFromString(strings.TrimPrefix(raw, "$"))
		if err != nil {
			return fmt.Errorf("%w: investmentAmount %q", ErrFieldValue, raw)
		}
		p.InvestmentAmount = v
		return nil
	},
	"comments": text(func(p *model.SubmissionPayload) *string { return &p.Comments }),
	"termsAccepted": func(p *model.SubmissionPayload, raw string) error {
		v, err := parseBool(raw)
		if err != nil {
			return err
		}
		p.TermsAccepted = v
		return nil
	},
}

// FieldNames lists every name accepted by Controller.SetField.
func FieldNames() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func text(get func(*model.SubmissionPayload) *string) setter {
	return func(p *model.SubmissionPayload, raw string) error {
		*get(p) = raw
		return nil
	}
}

func formatted(get func(*model.SubmissionPayload) *string, fn func(string) string) setter {
	return func(p *model.SubmissionPayload, raw string) error {
		*get(p) = fn(raw)
		return nil
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "si", "sí":
		return true, nil
	case "no", "n", "":
		return false, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a yes/no value", ErrFieldValue, raw)
	}
	return v, nil
}
