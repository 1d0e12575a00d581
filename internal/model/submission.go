package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType тип банковского счёта инвестора
type AccountType string

const (
	AccountTypeSavings  AccountType = "savings"
	AccountTypeChecking AccountType = "checking"
)

// BankOther означает, что название банка указано в поле customBank
const BankOther = "other"

// Banks known to the onboarding form. Anything else must go through BankOther.
var Banks = []string{
	"Banco Agrícola",
	"Banco Cuscatlán",
	"Banco Davivienda",
	"Banco Atlántida",
	"Banco Azul",
	"Banco Industrial",
	"Banco Promérica",
	"Banco de América Central",
	"Banco Hipotecario",
	"Banco G&T Continental",
	"Banco de Fomento Agropecuario",
}

// IsKnownBank reports whether name is one of Banks or BankOther.
func IsKnownBank(name string) bool {
	if name == BankOther {
		return true
	}
	for _, b := range Banks {
		if b == name {
			return true
		}
	}
	return false
}

// SubmissionPayload is one investor application as assembled by the client.
// Every logical field has exactly one JSON name.
type SubmissionPayload struct {
	FullName   string `json:"fullName" validate:"required,max=200"`
	NationalID string `json:"nationalId" validate:"required,national_id"`
	Phone      string `json:"phone" validate:"required,phone"`
	Email      string `json:"email" validate:"required,email,max=254"`

	BankName      string      `json:"bankName" validate:"required"`
	CustomBank    string      `json:"customBank,omitempty" validate:"max=120"`
	AccountNumber string      `json:"accountNumber" validate:"required,max=34"`
	AccountType   AccountType `json:"accountType" validate:"required,oneof=savings checking"`

	HasBeneficiaries      bool   `json:"hasBeneficiaries"`
	Beneficiary1Name      string `json:"beneficiary1Name,omitempty" validate:"max=200"`
	Beneficiary1Phone     string `json:"beneficiary1Phone,omitempty"`
	Beneficiary1Instagram string `json:"beneficiary1Instagram,omitempty" validate:"max=60"`
	Beneficiary2Name      string `json:"beneficiary2Name,omitempty" validate:"max=200"`
	Beneficiary2Phone     string `json:"beneficiary2Phone,omitempty"`
	Beneficiary2Instagram string `json:"beneficiary2Instagram,omitempty" validate:"max=60"`

	IsPoliticallyExposed bool   `json:"isPoliticallyExposed"`
	ExposedPosition      string `json:"exposedPosition,omitempty" validate:"max=200"`

	InvestmentAmount decimal.Decimal `json:"investmentAmount"`
	Comments         string          `json:"comments,omitempty" validate:"max=2000"`
	TermsAccepted    bool            `json:"termsAccepted"`

	IDFrontImage        string `json:"idFrontImage,omitempty" validate:"required"`
	IDBackImage         string `json:"idBackImage,omitempty" validate:"required"`
	PaymentReceiptImage string `json:"paymentReceiptImage,omitempty" validate:"required"`
	UtilityReceiptImage string `json:"utilityReceiptImage,omitempty" validate:"required"`
	SignatureImage      string `json:"signatureImage,omitempty" validate:"required"`
}

// Beneficiary один из двух бенефициаров
type Beneficiary struct {
	Name      string
	Phone     string
	Instagram string
}

// Beneficiaries returns both beneficiary records, blank when HasBeneficiaries is false.
func (p *SubmissionPayload) Beneficiaries() [2]Beneficiary {
	if !p.HasBeneficiaries {
		return [2]Beneficiary{}
	}
	return [2]Beneficiary{
		{Name: p.Beneficiary1Name, Phone: p.Beneficiary1Phone, Instagram: p.Beneficiary1Instagram},
		{Name: p.Beneficiary2Name, Phone: p.Beneficiary2Phone, Instagram: p.Beneficiary2Instagram},
	}
}

// ResolvedBankName returns the custom bank name when BankOther was chosen.
func (p *SubmissionPayload) ResolvedBankName() string {
	if p.BankName == BankOther {
		return p.CustomBank
	}
	return p.BankName
}

// Image returns the encoded image carried for kind.
func (p *SubmissionPayload) Image(kind DocumentKind) string {
	switch kind {
	case DocumentIDFront:
		return p.IDFrontImage
	case DocumentIDBack:
		return p.IDBackImage
	case DocumentPaymentReceipt:
		return p.PaymentReceiptImage
	case DocumentUtilityReceipt:
		return p.UtilityReceiptImage
	case DocumentSignature:
		return p.SignatureImage
	}
	return ""
}

// SetImage stores data in the field that carries kind.
func (p *SubmissionPayload) SetImage(kind DocumentKind, data string) {
	switch kind {
	case DocumentIDFront:
		p.IDFrontImage = data
	case DocumentIDBack:
		p.IDBackImage = data
	case DocumentPaymentReceipt:
		p.PaymentReceiptImage = data
	case DocumentUtilityReceipt:
		p.UtilityReceiptImage = data
	case DocumentSignature:
		p.SignatureImage = data
	}
}

// Sanitize removes angle brackets from every free-text field. Image fields are left alone.
func (p *SubmissionPayload) Sanitize() {
	for _, f := range []*string{
		&p.FullName, &p.NationalID, &p.Phone, &p.Email,
		&p.BankName, &p.CustomBank, &p.AccountNumber,
		&p.Beneficiary1Name, &p.Beneficiary1Phone, &p.Beneficiary1Instagram,
		&p.Beneficiary2Name, &p.Beneficiary2Phone, &p.Beneficiary2Instagram,
		&p.ExposedPosition, &p.Comments,
	} {
		*f = stripAngles(strings.TrimSpace(*f))
	}
	p.AccountType = AccountType(stripAngles(strings.TrimSpace(string(p.AccountType))))
}

func stripAngles(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// Envelope is the wire form of a submission: the payload plus the transport credentials.
// The server drops SecretToken and Origin once the request has been authorised.
type Envelope struct {
	SubmissionPayload
	SecretToken string `json:"secretToken"`
	Origin      string `json:"origin,omitempty"`
}

// IngestResponse тело ответа эндпоинта приёма
type IngestResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId,omitempty"`
}
