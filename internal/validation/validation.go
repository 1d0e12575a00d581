// Package validation checks SubmissionPayload values for the form client and the ingestion server.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"investor_onboarding/internal/format"
	"investor_onboarding/internal/model"
)

// Mode выбирает строгость проверки телефонов и DUI
type Mode int

const (
	// ModeClient accepts partial phone/ID values below canonical length.
	ModeClient Mode = iota
	// ModeServer requires the exact canonical format.
	ModeServer
)

// ErrInvalid is matched by every *Errors value.
var ErrInvalid = errors.New("invalid submission")

// FieldError описывает одну ошибку поля
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors collects every field error of one validation run.
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

func (e *Errors) Is(target error) bool {
	return target == ErrInvalid
}

// Has reports whether field has at least one error.
func (e *Errors) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Only returns the errors for the given fields, or nil when none remain.
func (e *Errors) Only(fields ...string) *Errors {
	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	var out []FieldError
	for _, f := range e.Fields {
		if keep[f.Field] {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &Errors{Fields: out}
}

// Validator проверяет заявки в заданном режиме
type Validator struct {
	v             *validator.Validate
	mode          Mode
	minInvestment decimal.Decimal
}

// New builds a Validator. minInvestment is the lowest accepted investment amount.
func New(mode Mode, minInvestment decimal.Decimal) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	val := &Validator{v: v, mode: mode, minInvestment: minInvestment}

	// Ошибки регистрации возможны только при пустом имени тега
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return val.checkPhone(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("national_id", func(fl validator.FieldLevel) bool {
		return val.checkNationalID(fl.Field().String()) == nil
	})
	v.RegisterStructValidation(val.structRules, model.SubmissionPayload{})

	return val
}

// Validate returns nil or an *Errors describing every problem with p.
func (val *Validator) Validate(p *model.SubmissionPayload) error {
	err := val.v.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate submission: %w", err)
	}

	out := &Errors{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

func (val *Validator) checkPhone(v string) error {
	if val.mode == ModeClient {
		return format.CheckPhone(v)
	}
	if !format.PhonePattern.MatchString(v) {
		return format.ErrPhoneFormat
	}
	return nil
}

func (val *Validator) checkNationalID(v string) error {
	if val.mode == ModeClient {
		return format.CheckNationalID(v)
	}
	if !format.NationalIDPattern.MatchString(v) {
		return format.ErrNationalIDFormat
	}
	return nil
}

func (val *Validator) structRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(model.SubmissionPayload)

	if p.BankName != "" && !model.IsKnownBank(p.BankName) {
		sl.ReportError(p.BankName, "bankName", "BankName", "bank", "")
	}
	if p.BankName == model.BankOther && strings.TrimSpace(p.CustomBank) == "" {
		sl.ReportError(p.CustomBank, "customBank", "CustomBank", "required_if_other", "")
	}

	if p.HasBeneficiaries {
		val.beneficiaryRules(sl, "1", p.Beneficiary1Name, p.Beneficiary1Phone)
		val.beneficiaryRules(sl, "2", p.Beneficiary2Name, p.Beneficiary2Phone)
	}

	if p.IsPoliticallyExposed && strings.TrimSpace(p.ExposedPosition) == "" {
		sl.ReportError(p.ExposedPosition, "exposedPosition", "ExposedPosition", "required_if_exposed", "")
	}
	if !p.IsPoliticallyExposed && strings.TrimSpace(p.ExposedPosition) != "" {
		sl.ReportError(p.ExposedPosition, "exposedPosition", "ExposedPosition", "excluded_unless_exposed", "")
	}

	switch {
	case p.InvestmentAmount.Sign() <= 0:
		sl.ReportError(p.InvestmentAmount, "investmentAmount", "InvestmentAmount", "required", "")
	case p.InvestmentAmount.LessThan(val.minInvestment):
		sl.ReportError(p.InvestmentAmount, "investmentAmount", "InvestmentAmount", "min", val.minInvestment.String())
	}

	if !p.TermsAccepted {
		sl.ReportError(p.TermsAccepted, "termsAccepted", "TermsAccepted", "accepted", "")
	}
}

func (val *Validator) beneficiaryRules(sl validator.StructLevel, n, name, phone string) {
	if strings.TrimSpace(name) == "" {
		sl.ReportError(name, "beneficiary"+n+"Name", "Beneficiary"+n+"Name", "required_if_beneficiaries", "")
	}
	if strings.TrimSpace(phone) == "" {
		sl.ReportError(phone, "beneficiary"+n+"Phone", "Beneficiary"+n+"Phone", "required_if_beneficiaries", "")
		return
	}
	if val.checkPhone(phone) != nil {
		sl.ReportError(phone, "beneficiary"+n+"Phone", "Beneficiary"+n+"Phone", "phone", "")
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if_beneficiaries", "required_if_other", "required_if_exposed":
		return "is required"
	case "email":
		return "must be a valid e-mail address"
	case "phone":
		return "must match NNNN-NNNN"
	case "national_id":
		return "must match NNNNNNNN-N"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "bank":
		return "is not a known bank"
	case "excluded_unless_exposed":
		return "must be empty unless the investor is politically exposed"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "accepted":
		return "terms must be accepted"
	}
	return "is invalid"
}
